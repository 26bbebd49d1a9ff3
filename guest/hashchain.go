package guest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lambdaclass/zk-benchmarks/crypto"
	"github.com/lambdaclass/zk-benchmarks/journal"
)

// MaxRounds bounds the hash applications per message.
const MaxRounds = 1 << 20

// DigestEncoding selects how a committed digest is laid out in the journal.
type DigestEncoding string

const (
	// EncodeDigest commits the raw digest bytes.
	EncodeDigest DigestEncoding = "digest"
	// EncodeWords32 commits the digest as big-endian 32-bit words.
	EncodeWords32 DigestEncoding = "words32"
	// EncodeWords64 commits the digest as big-endian 64-bit words.
	EncodeWords64 DigestEncoding = "words64"
)

// Message is one hash-chain message. Exactly one source must be set.
type Message struct {
	Text  string `yaml:"text,omitempty" json:"text,omitempty"`
	Hex   string `yaml:"hex,omitempty" json:"hex,omitempty"`
	Input string `yaml:"input,omitempty" json:"input,omitempty"`
}

func (m Message) validate() error {
	set := 0
	for _, s := range []string{m.Text, m.Hex, m.Input} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return errors.New("message needs exactly one of text, hex, input")
	}
	if m.Hex != "" {
		if _, err := hexutil.Decode(m.Hex); err != nil {
			return fmt.Errorf("message hex: %v", err)
		}
	}
	return nil
}

func (m Message) resolve(env *Env) ([]byte, error) {
	switch {
	case m.Input != "":
		return env.Read(m.Input)
	case m.Hex != "":
		return hexutil.Decode(m.Hex)
	}
	return []byte(m.Text), nil
}

// HashChainParams configures the hash-chain family: each message is hashed
// Rounds times, each round hashing the previous digest, and the digests of
// the messages listed in Commit are committed in that order.
type HashChainParams struct {
	Hash     crypto.HashFunc `yaml:"hash" json:"hash"`
	Messages []Message       `yaml:"messages" json:"messages"`
	// Rounds is the number of hash applications per message; zero means one.
	Rounds int `yaml:"rounds,omitempty" json:"rounds,omitempty"`
	// Commit lists message indices to commit; empty commits every message.
	Commit   []int          `yaml:"commit,omitempty" json:"commit,omitempty"`
	Encoding DigestEncoding `yaml:"encoding" json:"encoding"`
	// Mask is ANDed into byte 0 of each committed digest before encoding.
	Mask *uint8 `yaml:"mask,omitempty" json:"mask,omitempty"`
}

func (hc *HashChainParams) validate() error {
	if !hc.Hash.Valid() {
		return fmt.Errorf("%w: %q", crypto.ErrUnknownHash, string(hc.Hash))
	}
	if len(hc.Messages) == 0 {
		return errors.New("no messages")
	}
	for i, m := range hc.Messages {
		if err := m.validate(); err != nil {
			return fmt.Errorf("message %d: %v", i, err)
		}
	}
	if hc.Rounds < 0 || hc.Rounds > MaxRounds {
		return fmt.Errorf("rounds %d out of range [0, %d]", hc.Rounds, MaxRounds)
	}
	for _, idx := range hc.Commit {
		if idx < 0 || idx >= len(hc.Messages) {
			return fmt.Errorf("commit index %d out of range", idx)
		}
	}
	if hc.wordWidth() < 0 {
		return fmt.Errorf("unknown encoding %q", hc.Encoding)
	}
	return nil
}

// wordWidth is the word size of the encoding, zero for raw digests and
// negative for unknown encodings.
func (hc *HashChainParams) wordWidth() int {
	switch hc.Encoding {
	case EncodeDigest:
		return 0
	case EncodeWords32:
		return 4
	case EncodeWords64:
		return 8
	}
	return -1
}

func (hc *HashChainParams) rounds() int {
	if hc.Rounds == 0 {
		return 1
	}
	return hc.Rounds
}

func (hc *HashChainParams) committed() []int {
	if len(hc.Commit) > 0 {
		return hc.Commit
	}
	all := make([]int, len(hc.Messages))
	for i := range all {
		all[i] = i
	}
	return all
}

func (hc *HashChainParams) inputs() []Input {
	var in []Input
	for _, m := range hc.Messages {
		if m.Input != "" {
			in = append(in, Input{Name: m.Input, Kind: "bytes"})
		}
	}
	return in
}

func (hc *HashChainParams) layout() journal.Layout {
	var t journal.Type
	switch hc.Encoding {
	case EncodeWords32:
		t = journal.U32Array(crypto.DigestLength / 4)
	case EncodeWords64:
		t = journal.U64Array(crypto.DigestLength / 8)
	default:
		t = journal.Bytes(crypto.DigestLength)
	}
	idx := hc.committed()
	l := make(journal.Layout, len(idx))
	for i := range l {
		l[i] = t
	}
	return l
}

func (hc *HashChainParams) run(env *Env) error {
	digests := make([][crypto.DigestLength]byte, len(hc.Messages))
	for i, m := range hc.Messages {
		msg, err := m.resolve(env)
		if err != nil {
			return err
		}
		d, err := hc.Hash.Sum(msg)
		if err != nil {
			return err
		}
		if err := env.Step(d[:]); err != nil {
			return err
		}
		for r := 1; r < hc.rounds(); r++ {
			if d, err = hc.Hash.Sum(d[:]); err != nil {
				return err
			}
			if err := env.Step(d[:]); err != nil {
				return err
			}
		}
		digests[i] = d
	}

	for _, idx := range hc.committed() {
		v, err := DigestValue(digests[idx][:], hc.Encoding, hc.Mask)
		if err != nil {
			return err
		}
		if err := env.Commit(v); err != nil {
			return err
		}
	}
	return nil
}

// DigestValue converts a digest into the committed value for enc. The
// mask, if any, is applied to the first byte of a copy of the digest
// before it is split into words.
func DigestValue(digest []byte, enc DigestEncoding, mask *uint8) (journal.Value, error) {
	d := make([]byte, len(digest))
	copy(d, digest)
	if mask != nil && len(d) > 0 {
		d[0] &= *mask
	}

	switch enc {
	case EncodeDigest:
		return journal.NewBytes(d), nil
	case EncodeWords32:
		if len(d)%4 != 0 {
			return journal.Value{}, fmt.Errorf("%w: %d-byte digest is not a whole number of u32 words", ErrGuestFault, len(d))
		}
		words := make([]uint32, len(d)/4)
		for i := range words {
			words[i] = binary.BigEndian.Uint32(d[4*i:])
		}
		return journal.NewUint32s(words), nil
	case EncodeWords64:
		if len(d)%8 != 0 {
			return journal.Value{}, fmt.Errorf("%w: %d-byte digest is not a whole number of u64 words", ErrGuestFault, len(d))
		}
		words := make([]uint64, len(d)/8)
		for i := range words {
			words[i] = binary.BigEndian.Uint64(d[8*i:])
		}
		return journal.NewUint64s(words), nil
	}
	return journal.Value{}, fmt.Errorf("%w: unknown encoding %q", ErrInvalidProgram, enc)
}
