// Package store persists receipts in LevelDB, keyed by receipt digest and
// indexed by the program identity they were proven for.
package store

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/lambdaclass/zk-benchmarks/log"
	"github.com/lambdaclass/zk-benchmarks/metrics"
	"github.com/lambdaclass/zk-benchmarks/zkvm"
)

// Key schema:
//
//	"r" || digest              -> programID || binary receipt
//	"p" || programID || digest -> empty
var (
	receiptPrefix = []byte("r")
	programPrefix = []byte("p")
)

var (
	ErrNotFound = errors.New("store: receipt not found")
	ErrCorrupt  = errors.New("store: corrupt record")
	ErrClosed   = errors.New("store: closed")
)

// Entry is a stored receipt together with the program it attests.
type Entry struct {
	Digest    common.Hash
	ProgramID common.Hash
	Receipt   *zkvm.Receipt
}

// ReceiptStore is a LevelDB-backed receipt archive. LevelDB handles its
// own synchronization, so the store is safe for concurrent use.
type ReceiptStore struct {
	db  *leveldb.DB
	log *log.Logger
}

// Open opens or creates a store at path. An empty path selects in-memory
// storage.
func Open(path string) (*ReceiptStore, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	logger := log.Default().Module("store")
	logger.Debug("Receipt store opened", "path", path)
	return &ReceiptStore{db: db, log: logger}, nil
}

// OpenMemory opens an in-memory store.
func OpenMemory() (*ReceiptStore, error) {
	return Open("")
}

func receiptKey(digest common.Hash) []byte {
	return append(append([]byte{}, receiptPrefix...), digest[:]...)
}

func programKey(programID, digest common.Hash) []byte {
	key := make([]byte, 0, len(programPrefix)+2*common.HashLength)
	key = append(key, programPrefix...)
	key = append(key, programID[:]...)
	return append(key, digest[:]...)
}

// Put stores receipt under its digest and indexes it by programID.
// Storing the same receipt twice is a no-op.
func (s *ReceiptStore) Put(programID common.Hash, receipt *zkvm.Receipt) (common.Hash, error) {
	if receipt == nil {
		return common.Hash{}, fmt.Errorf("%w: nil receipt", zkvm.ErrMalformedReceipt)
	}
	enc, err := receipt.MarshalBinary()
	if err != nil {
		return common.Hash{}, err
	}
	digest, err := receipt.Digest()
	if err != nil {
		return common.Hash{}, err
	}

	value := make([]byte, 0, common.HashLength+len(enc))
	value = append(value, programID[:]...)
	value = append(value, enc...)

	batch := new(leveldb.Batch)
	batch.Put(receiptKey(digest), value)
	batch.Put(programKey(programID, digest), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return common.Hash{}, s.wrap("put", err)
	}
	metrics.ReceiptsStored.Inc()
	s.log.Debug("Stored receipt", "digest", digest.TerminalString(), "id", programID.TerminalString(), "size", len(enc))
	return digest, nil
}

// Get returns the entry stored under digest.
func (s *ReceiptStore) Get(digest common.Hash) (*Entry, error) {
	value, err := s.db.Get(receiptKey(digest), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digest.Hex())
	}
	if err != nil {
		return nil, s.wrap("get", err)
	}
	if len(value) < common.HashLength {
		return nil, fmt.Errorf("%w: %s: short value", ErrCorrupt, digest.Hex())
	}
	receipt, err := zkvm.ParseReceipt(value[common.HashLength:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, digest.Hex(), err)
	}
	return &Entry{
		Digest:    digest,
		ProgramID: common.BytesToHash(value[:common.HashLength]),
		Receipt:   receipt,
	}, nil
}

// Has reports whether a receipt is stored under digest.
func (s *ReceiptStore) Has(digest common.Hash) (bool, error) {
	ok, err := s.db.Has(receiptKey(digest), nil)
	if err != nil {
		return false, s.wrap("has", err)
	}
	return ok, nil
}

// ListByProgram returns the digests of every receipt stored for programID,
// in key order.
func (s *ReceiptStore) ListByProgram(programID common.Hash) ([]common.Hash, error) {
	prefix := append(append([]byte{}, programPrefix...), programID[:]...)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var digests []common.Hash
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefix)+common.HashLength {
			return nil, fmt.Errorf("%w: index key %x", ErrCorrupt, key)
		}
		digests = append(digests, common.BytesToHash(key[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, s.wrap("list", err)
	}
	return digests, nil
}

// Delete removes the receipt stored under digest and its index entry.
func (s *ReceiptStore) Delete(digest common.Hash) error {
	entry, err := s.Get(digest)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Delete(receiptKey(digest))
	batch.Delete(programKey(entry.ProgramID, digest))
	if err := s.db.Write(batch, nil); err != nil {
		return s.wrap("delete", err)
	}
	return nil
}

// Close releases the database.
func (s *ReceiptStore) Close() error {
	return s.db.Close()
}

func (s *ReceiptStore) wrap(op string, err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("%w: %s", ErrClosed, op)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
