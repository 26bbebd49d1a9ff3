package journal

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Journal is the append-only commitment log written by one guest execution.
// It is not safe for concurrent use; an execution owns its journal.
type Journal struct {
	buf     []byte
	commits int
	sealed  bool
}

// New returns an empty, unsealed journal.
func New() *Journal {
	return &Journal{}
}

// Commit appends the canonical encoding of v. Every successful commit
// grows the journal; zero-width or inconsistent values are rejected, as is
// any commit after Seal.
func (j *Journal) Commit(v Value) error {
	if j.sealed {
		return ErrSealed
	}
	if !v.valid() {
		return fmt.Errorf("%w: cannot commit %s", ErrInvalidType, v.typ)
	}
	j.buf = append(j.buf, v.data...)
	j.commits++
	return nil
}

// CommitUint32 commits a 32-bit word.
func (j *Journal) CommitUint32(v uint32) error { return j.Commit(NewUint32(v)) }

// CommitUint64 commits a 64-bit word.
func (j *Journal) CommitUint64(v uint64) error { return j.Commit(NewUint64(v)) }

// CommitUint256 commits a 256-bit word.
func (j *Journal) CommitUint256(v *uint256.Int) error { return j.Commit(NewUint256(v)) }

// CommitUint32s commits an array of 32-bit words.
func (j *Journal) CommitUint32s(vs []uint32) error { return j.Commit(NewUint32s(vs)) }

// CommitBytes commits a raw byte array.
func (j *Journal) CommitBytes(b []byte) error { return j.Commit(NewBytes(b)) }

// Len is the current journal length in bytes.
func (j *Journal) Len() int { return len(j.buf) }

// Commits is the number of values committed so far.
func (j *Journal) Commits() int { return j.commits }

// Sealed reports whether the journal has been sealed.
func (j *Journal) Sealed() bool { return j.sealed }

// Bytes returns a copy of the journal contents.
func (j *Journal) Bytes() []byte {
	out := make([]byte, len(j.buf))
	copy(out, j.buf)
	return out
}

// Seal makes the journal immutable and returns a copy of its final bytes.
// Sealing twice is harmless.
func (j *Journal) Seal() []byte {
	j.sealed = true
	return j.Bytes()
}

// Encode commits values in order to a fresh journal and returns the sealed
// bytes.
func Encode(values ...Value) ([]byte, error) {
	j := New()
	for i, v := range values {
		if err := j.Commit(v); err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
	}
	return j.Seal(), nil
}
