package zkvm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lambdaclass/zk-benchmarks/crypto"
	"github.com/lambdaclass/zk-benchmarks/journal"
)

// ReceiptVersion is the current binary receipt format version.
const ReceiptVersion uint16 = 1

// receiptHeaderSize is version(2) + proof system(1) + journal length(4).
const receiptHeaderSize = 2 + 1 + 4

// Receipt bundles the final journal of one execution with the seal a
// backend produced over it. Receipts are never mutated after creation.
//
// Binary format (little-endian lengths):
//
//	version(2) || proofSystem(1) || len(journal)(4) || journal || len(seal)(4) || seal
type Receipt struct {
	ProofSystem ProofSystem
	Journal     []byte
	Seal        []byte
}

// MarshalBinary encodes the receipt.
func (r *Receipt) MarshalBinary() ([]byte, error) {
	if !r.ProofSystem.Valid() {
		return nil, fmt.Errorf("%w: unknown proof system %d", ErrMalformedReceipt, r.ProofSystem)
	}
	out := make([]byte, 0, receiptHeaderSize+len(r.Journal)+4+len(r.Seal))
	out = binary.LittleEndian.AppendUint16(out, ReceiptVersion)
	out = append(out, byte(r.ProofSystem))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(r.Journal)))
	out = append(out, r.Journal...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(r.Seal)))
	out = append(out, r.Seal...)
	return out, nil
}

// UnmarshalBinary decodes a receipt. Any structural problem, including
// trailing bytes, is reported as ErrMalformedReceipt.
func (r *Receipt) UnmarshalBinary(data []byte) error {
	if len(data) < receiptHeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedReceipt, len(data))
	}
	if v := binary.LittleEndian.Uint16(data[0:2]); v != ReceiptVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedReceipt, v)
	}
	ps := ProofSystem(data[2])
	if !ps.Valid() {
		return fmt.Errorf("%w: unknown proof system %d", ErrMalformedReceipt, data[2])
	}

	rest := data[3:]
	journalBytes, rest, err := readChunk(rest, "journal")
	if err != nil {
		return err
	}
	seal, rest, err := readChunk(rest, "seal")
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedReceipt, len(rest))
	}

	r.ProofSystem = ps
	r.Journal = journalBytes
	r.Seal = seal
	return nil
}

// readChunk splits a u32-length-prefixed chunk off the front of b,
// returning a copy of it.
func readChunk(b []byte, what string) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: missing %s length", ErrMalformedReceipt, what)
	}
	n := uint64(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if uint64(len(b)) < n {
		return nil, nil, fmt.Errorf("%w: %s length %d exceeds remaining %d bytes", ErrMalformedReceipt, what, n, len(b))
	}
	chunk := make([]byte, n)
	copy(chunk, b[:n])
	return chunk, b[n:], nil
}

// ParseReceipt decodes a binary receipt.
func ParseReceipt(data []byte) (*Receipt, error) {
	r := new(Receipt)
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Digest is keccak256 over the binary encoding; it identifies the receipt.
func (r *Receipt) Digest() (common.Hash, error) {
	enc, err := r.MarshalBinary()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// Decode decodes the journal with layout. The values are untrusted until
// the receipt has been verified.
func (r *Receipt) Decode(layout journal.Layout) ([]journal.Value, error) {
	return journal.Decode(r.Journal, layout)
}

type receiptJSON struct {
	Version     uint16        `json:"version"`
	ProofSystem string        `json:"proof_system"`
	Journal     hexutil.Bytes `json:"journal"`
	Seal        hexutil.Bytes `json:"seal"`
}

// MarshalJSON encodes the receipt with hex byte fields.
func (r *Receipt) MarshalJSON() ([]byte, error) {
	if !r.ProofSystem.Valid() {
		return nil, fmt.Errorf("%w: unknown proof system %d", ErrMalformedReceipt, r.ProofSystem)
	}
	return json.Marshal(receiptJSON{
		Version:     ReceiptVersion,
		ProofSystem: r.ProofSystem.String(),
		Journal:     r.Journal,
		Seal:        r.Seal,
	})
}

// UnmarshalJSON decodes the JSON form produced by MarshalJSON.
func (r *Receipt) UnmarshalJSON(data []byte) error {
	var rj receiptJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	if rj.Version != ReceiptVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedReceipt, rj.Version)
	}
	ps, err := ParseProofSystem(rj.ProofSystem)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	r.ProofSystem = ps
	r.Journal = []byte(rj.Journal)
	r.Seal = []byte(rj.Seal)
	return nil
}

// claimTag domain-separates claim digests.
const claimTag = "zk-benchmarks/claim/v1"

// ClaimDigest binds a journal to the program that produced it:
// keccak256(tag || programID || sha256(journal)). Seals of every backend
// commit to this digest.
func ClaimDigest(programID common.Hash, journalBytes []byte) common.Hash {
	jd, _ := crypto.SHA256Func.Sum(journalBytes)
	return crypto.Keccak256Hash([]byte(claimTag), programID[:], jd[:])
}
