// Package zkvm drives verifiable guest execution on the host side: it builds
// execution contexts, hands programs to a proving backend, serializes the
// resulting receipts and verifies them against an expected program identity.
package zkvm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/zk-benchmarks/guest"
)

// Host-side error taxonomy. Guest faults are reported with the sentinels
// of package guest.
var (
	ErrConfiguration      = errors.New("zkvm: configuration error")
	ErrMissingInput       = fmt.Errorf("%w: missing input", ErrConfiguration)
	ErrUnknownInput       = fmt.Errorf("%w: unknown input", ErrConfiguration)
	ErrContextConsumed    = fmt.Errorf("%w: execution context already used", ErrConfiguration)
	ErrProgramMismatch    = fmt.Errorf("%w: context built for another program", ErrConfiguration)
	ErrProving            = errors.New("zkvm: proving failed")
	ErrBackendUnavailable = errors.New("zkvm: backend unavailable")
	ErrMalformedReceipt   = errors.New("zkvm: malformed receipt")
)

// ProofSystem tags the seal format of a receipt.
type ProofSystem uint8

const (
	// ProofSystemLocal is the in-process trace-commitment seal.
	ProofSystemLocal ProofSystem = iota + 1
	// ProofSystemAttested is a BLS12-381 attestation over the claim.
	ProofSystemAttested
)

func (ps ProofSystem) String() string {
	switch ps {
	case ProofSystemLocal:
		return "local"
	case ProofSystemAttested:
		return "attested"
	}
	return fmt.Sprintf("proofsystem(%d)", uint8(ps))
}

// Valid reports whether ps is a known proof system.
func (ps ProofSystem) Valid() bool {
	return ps == ProofSystemLocal || ps == ProofSystemAttested
}

// ParseProofSystem parses the String form of a proof system.
func ParseProofSystem(s string) (ProofSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return ProofSystemLocal, nil
	case "attested":
		return ProofSystemAttested, nil
	}
	return 0, fmt.Errorf("%w: unknown proof system %q", ErrConfiguration, s)
}

// ProveResult is what a backend returns for one successful attempt.
type ProveResult struct {
	Receipt   *Receipt
	ProgramID common.Hash
	Steps     uint64
}

// Backend is a proving system. Prove is a single blocking call per
// execution context; Verify never re-executes the program and returns false,
// not an error, for a well-formed receipt whose seal does not check out.
type Backend interface {
	// Name identifies the backend in logs and receipts listings.
	Name() string

	// ProofSystem is the seal format the backend produces and checks.
	ProofSystem() ProofSystem

	// Prove executes program on ec and seals the resulting journal.
	Prove(ctx context.Context, program *guest.Program, ec *ExecutionContext) (*ProveResult, error)

	// Verify checks that receipt attests an execution of programID.
	Verify(ctx context.Context, receipt *Receipt, programID common.Hash) (bool, error)
}

// BackendConfig bounds executions performed by the in-process backends.
type BackendConfig struct {
	// StepBudget is the guest step limit; zero selects DefaultStepBudget.
	StepBudget uint64
}

// DefaultStepBudget is the guest step limit when none is configured.
const DefaultStepBudget = 1 << 24

func (c BackendConfig) budget() uint64 {
	if c.StepBudget == 0 {
		return DefaultStepBudget
	}
	return c.StepBudget
}
