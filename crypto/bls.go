package crypto

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

// blsDST is the domain separation tag for receipt attestations. It follows
// the Ethereum proof-of-possession ciphersuite (min-pk: keys in G1,
// signatures in G2).
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// Key and signature sizes for the min-pk scheme.
const (
	BLSPublicKeySize = 48 // compressed G1
	BLSSignatureSize = 96 // compressed G2
	blsMinIKMSize    = 32
)

var (
	ErrBLSInvalidIKM   = errors.New("crypto: bls IKM must be at least 32 bytes")
	ErrBLSKeyGenFailed = errors.New("crypto: bls key generation failed")
	ErrBLSSignFailed   = errors.New("crypto: bls signing failed")
)

// BLSSigner holds a BLS12-381 secret key and its compressed public key.
type BLSSigner struct {
	sk *blst.SecretKey
	pk []byte
}

// NewBLSSigner derives a key pair from input key material. The same IKM
// always yields the same key pair.
func NewBLSSigner(ikm []byte) (*BLSSigner, error) {
	if len(ikm) < blsMinIKMSize {
		return nil, ErrBLSInvalidIKM
	}
	sk := blst.KeyGen(ikm)
	if sk == nil {
		return nil, ErrBLSKeyGenFailed
	}
	pk := new(blst.P1Affine).From(sk)
	return &BLSSigner{sk: sk, pk: pk.Compress()}, nil
}

// PublicKey returns a copy of the 48-byte compressed public key.
func (s *BLSSigner) PublicKey() []byte {
	out := make([]byte, len(s.pk))
	copy(out, s.pk)
	return out
}

// Sign returns the 96-byte compressed signature over msg.
func (s *BLSSigner) Sign(msg []byte) ([]byte, error) {
	sig := new(blst.P2Affine).Sign(s.sk, msg, blsDST)
	if sig == nil {
		return nil, ErrBLSSignFailed
	}
	return sig.Compress(), nil
}

// BLSVerify checks a single signature. Malformed keys or signatures verify
// as false rather than erroring.
func BLSVerify(pubkey, msg, sig []byte) bool {
	if len(pubkey) != BLSPublicKeySize || len(sig) != BLSSignatureSize {
		return false
	}
	pk := new(blst.P1Affine).Uncompress(pubkey)
	if pk == nil {
		return false
	}
	s := new(blst.P2Affine).Uncompress(sig)
	if s == nil {
		return false
	}
	return s.Verify(true, pk, true, msg, blsDST)
}
