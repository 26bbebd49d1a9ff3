// Package crypto provides the hash functions available to guest programs,
// the SHA-256 Merkle commitment used for execution traces, and the BLS
// signer behind the attesting proof backend.
package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// DigestLength is the output size in bytes of every supported hash function.
const DigestLength = 32

// HashFunc names a 256-bit hash function a guest program may apply.
type HashFunc string

const (
	Keccak256Func  HashFunc = "keccak256"
	Blake2s256Func HashFunc = "blake2s256"
	SHA256Func     HashFunc = "sha256"
)

// ErrUnknownHash is returned for a HashFunc that names no supported function.
var ErrUnknownHash = errors.New("crypto: unknown hash function")

// HashFuncs lists the supported hash functions in a stable order.
func HashFuncs() []HashFunc {
	return []HashFunc{Keccak256Func, Blake2s256Func, SHA256Func}
}

// Valid reports whether f names a supported hash function.
func (f HashFunc) Valid() bool {
	switch f {
	case Keccak256Func, Blake2s256Func, SHA256Func:
		return true
	}
	return false
}

// New returns a fresh hasher for f.
func (f HashFunc) New() (hash.Hash, error) {
	switch f {
	case Keccak256Func:
		return sha3.NewLegacyKeccak256(), nil
	case Blake2s256Func:
		// An unkeyed BLAKE2s-256 cannot fail to initialise.
		return blake2s.New256(nil)
	case SHA256Func:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHash, string(f))
}

// Sum hashes the concatenation of data with f.
func (f HashFunc) Sum(data ...[]byte) ([DigestLength]byte, error) {
	var out [DigestLength]byte
	h, err := f.New()
	if err != nil {
		return out, err
	}
	for _, b := range data {
		h.Write(b)
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// Blake2s256 calculates the unkeyed BLAKE2s-256 hash of data.
func Blake2s256(data []byte) [DigestLength]byte {
	return blake2s.Sum256(data)
}
