// proof_backend.go implements the in-process proving backend. It executes
// the guest with step tracing enabled, commits to the trace with a SHA-256
// Merkle root and derives a Groth16-shaped seal [A, B, C] from the trace
// commitment and the claim digest. The seal binds a journal to a program
// identity and a trace; it is not zero-knowledge and anyone holding the
// trace commitment can recompute it.
package zkvm

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/zk-benchmarks/guest"
)

// Groth16-shaped seal size: A(64) + B(128) + C(64) = 256 bytes, preceded
// by the 32-byte trace commitment.
const (
	groth16PointASize = 64
	groth16PointBSize = 128
	groth16PointCSize = 64
	groth16ProofSize  = groth16PointASize + groth16PointBSize + groth16PointCSize

	localSealSize = 32 + groth16ProofSize
)

// LocalBackend proves executions in-process.
type LocalBackend struct {
	cfg BackendConfig
}

// NewLocalBackend creates an in-process backend.
func NewLocalBackend(cfg BackendConfig) *LocalBackend {
	return &LocalBackend{cfg: cfg}
}

// Name returns "local".
func (b *LocalBackend) Name() string { return "local" }

// ProofSystem returns ProofSystemLocal.
func (b *LocalBackend) ProofSystem() ProofSystem { return ProofSystemLocal }

// Prove executes program and seals its journal.
func (b *LocalBackend) Prove(ctx context.Context, program *guest.Program, ec *ExecutionContext) (*ProveResult, error) {
	exec, id, err := execute(ctx, program, ec, b.cfg.budget(), true)
	if err != nil {
		return nil, err
	}
	seal := sealLocal(exec.TraceRoot, ClaimDigest(id, exec.Journal), id)
	return &ProveResult{
		Receipt:   &Receipt{ProofSystem: ProofSystemLocal, Journal: exec.Journal, Seal: seal},
		ProgramID: id,
		Steps:     exec.Steps,
	}, nil
}

// Verify recomputes the seal from the embedded trace commitment and the
// claim for programID.
func (b *LocalBackend) Verify(_ context.Context, receipt *Receipt, programID common.Hash) (bool, error) {
	if receipt == nil {
		return false, fmt.Errorf("%w: nil receipt", ErrMalformedReceipt)
	}
	if receipt.ProofSystem != ProofSystemLocal || len(receipt.Seal) != localSealSize {
		return false, nil
	}
	var traceCommitment [32]byte
	copy(traceCommitment[:], receipt.Seal[:32])
	expected := sealLocal(traceCommitment, ClaimDigest(programID, receipt.Journal), programID)
	return subtle.ConstantTimeCompare(expected, receipt.Seal) == 1, nil
}

// sealLocal assembles traceCommitment || A || B || C.
//   - A = SHA-256(traceCommitment || claim || "ProofPointA") ||
//     SHA-256("A_second" || traceCommitment || claim)
//   - B = four SHA-256(A || programID || le32(i) || "ProofPointB") blocks
//   - C = SHA-256(A || B || "ProofPointC_first") ||
//     SHA-256(B || A || "ProofPointC_second")
func sealLocal(traceCommitment [32]byte, claim, programID common.Hash) []byte {
	pointA := computePointA(traceCommitment, claim)
	pointB := computePointB(pointA, programID)
	pointC := computePointC(pointA, pointB)

	seal := make([]byte, 0, localSealSize)
	seal = append(seal, traceCommitment[:]...)
	seal = append(seal, pointA[:]...)
	seal = append(seal, pointB[:]...)
	seal = append(seal, pointC[:]...)
	return seal
}

func computePointA(traceCommitment [32]byte, claim common.Hash) [groth16PointASize]byte {
	h1 := sha256.New()
	h1.Write(traceCommitment[:])
	h1.Write(claim[:])
	h1.Write([]byte("ProofPointA"))

	h2 := sha256.New()
	h2.Write([]byte("A_second"))
	h2.Write(traceCommitment[:])
	h2.Write(claim[:])

	var out [groth16PointASize]byte
	copy(out[:32], h1.Sum(nil))
	copy(out[32:], h2.Sum(nil))
	return out
}

func computePointB(pointA [groth16PointASize]byte, programID common.Hash) [groth16PointBSize]byte {
	var out [groth16PointBSize]byte
	for i := 0; i < 4; i++ {
		h := sha256.New()
		h.Write(pointA[:])
		h.Write(programID[:])
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(i))
		h.Write(idx[:])
		h.Write([]byte("ProofPointB"))
		copy(out[i*32:], h.Sum(nil))
	}
	return out
}

func computePointC(pointA [groth16PointASize]byte, pointB [groth16PointBSize]byte) [groth16PointCSize]byte {
	h1 := sha256.New()
	h1.Write(pointA[:])
	h1.Write(pointB[:])
	h1.Write([]byte("ProofPointC_first"))

	h2 := sha256.New()
	h2.Write(pointB[:])
	h2.Write(pointA[:])
	h2.Write([]byte("ProofPointC_second"))

	var out [groth16PointCSize]byte
	copy(out[:32], h1.Sum(nil))
	copy(out[32:], h2.Sum(nil))
	return out
}

// execute is the execution step shared by the in-process backends. It
// checks the context belongs to program, claims it and runs the guest,
// classifying failures: an invalid program is a configuration error and
// every guest fault, budget exhaustion included, a proving error.
func execute(ctx context.Context, program *guest.Program, ec *ExecutionContext, budget uint64, trace bool) (*guest.Execution, common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %v", ErrProving, err)
	}
	if err := program.Validate(); err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	id, err := program.ID()
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if ec == nil {
		return nil, common.Hash{}, fmt.Errorf("%w: nil execution context", ErrConfiguration)
	}
	if ec.ProgramID() != id {
		return nil, common.Hash{}, fmt.Errorf("%w: have %s, want %s", ErrProgramMismatch, ec.ProgramID().TerminalString(), id.TerminalString())
	}
	segments, err := ec.claim()
	if err != nil {
		return nil, common.Hash{}, err
	}

	exec, err := guest.Execute(program, segments, guest.EnvConfig{StepBudget: budget, RecordTrace: trace})
	switch {
	case err == nil:
		return exec, id, nil
	case errors.Is(err, guest.ErrInvalidProgram):
		return nil, common.Hash{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	default:
		return nil, common.Hash{}, fmt.Errorf("%w: %s: %w", ErrProving, program.Name, err)
	}
}
