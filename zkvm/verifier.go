package zkvm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/zk-benchmarks/crypto"
	"github.com/lambdaclass/zk-benchmarks/guest"
)

// AttestingBackend executes guests in-process and seals each claim with a
// BLS12-381 signature. A verifier holding only the public key checks
// receipts without the signing key.
type AttestingBackend struct {
	cfg    BackendConfig
	signer *crypto.BLSSigner
	pubkey []byte
}

// NewAttestingBackend creates a backend that proves and verifies with signer.
func NewAttestingBackend(signer *crypto.BLSSigner, cfg BackendConfig) *AttestingBackend {
	return &AttestingBackend{cfg: cfg, signer: signer, pubkey: signer.PublicKey()}
}

// NewAttestingVerifier creates a verify-only backend for pubkey.
func NewAttestingVerifier(pubkey []byte) (*AttestingBackend, error) {
	if len(pubkey) != crypto.BLSPublicKeySize {
		return nil, fmt.Errorf("%w: attestation key must be %d bytes, have %d",
			ErrConfiguration, crypto.BLSPublicKeySize, len(pubkey))
	}
	pk := make([]byte, len(pubkey))
	copy(pk, pubkey)
	return &AttestingBackend{pubkey: pk}, nil
}

// Name returns "attested".
func (b *AttestingBackend) Name() string { return "attested" }

// ProofSystem returns ProofSystemAttested.
func (b *AttestingBackend) ProofSystem() ProofSystem { return ProofSystemAttested }

// PublicKey returns the compressed attestation key.
func (b *AttestingBackend) PublicKey() []byte {
	out := make([]byte, len(b.pubkey))
	copy(out, b.pubkey)
	return out
}

// Prove executes program and signs the claim digest of its journal.
func (b *AttestingBackend) Prove(ctx context.Context, program *guest.Program, ec *ExecutionContext) (*ProveResult, error) {
	if b.signer == nil {
		return nil, fmt.Errorf("%w: attesting backend has no signing key", ErrBackendUnavailable)
	}
	exec, id, err := execute(ctx, program, ec, b.cfg.budget(), false)
	if err != nil {
		return nil, err
	}
	claim := ClaimDigest(id, exec.Journal)
	sig, err := b.signer.Sign(claim[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProving, err)
	}
	return &ProveResult{
		Receipt:   &Receipt{ProofSystem: ProofSystemAttested, Journal: exec.Journal, Seal: sig},
		ProgramID: id,
		Steps:     exec.Steps,
	}, nil
}

// Verify checks the seal is a valid signature over the claim for
// programID. Wrong-length or invalid signatures yield false.
func (b *AttestingBackend) Verify(_ context.Context, receipt *Receipt, programID common.Hash) (bool, error) {
	if receipt == nil {
		return false, fmt.Errorf("%w: nil receipt", ErrMalformedReceipt)
	}
	if receipt.ProofSystem != ProofSystemAttested {
		return false, nil
	}
	claim := ClaimDigest(programID, receipt.Journal)
	return crypto.BLSVerify(b.pubkey, claim[:], receipt.Seal), nil
}

// UnavailableBackend stands in for a prover that cannot be reached. Every
// call fails with ErrBackendUnavailable.
type UnavailableBackend struct {
	// Reason is included in every error.
	Reason string
	// System is the proof system the unreachable prover would produce.
	System ProofSystem
}

// Name returns "unavailable".
func (b *UnavailableBackend) Name() string { return "unavailable" }

// ProofSystem returns the configured proof system.
func (b *UnavailableBackend) ProofSystem() ProofSystem { return b.System }

// Prove always fails.
func (b *UnavailableBackend) Prove(context.Context, *guest.Program, *ExecutionContext) (*ProveResult, error) {
	return nil, b.err()
}

// Verify always fails.
func (b *UnavailableBackend) Verify(context.Context, *Receipt, common.Hash) (bool, error) {
	return false, b.err()
}

func (b *UnavailableBackend) err() error {
	if b.Reason == "" {
		return ErrBackendUnavailable
	}
	return fmt.Errorf("%w: %s", ErrBackendUnavailable, b.Reason)
}
