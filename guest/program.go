// Package guest implements the deterministic guest computation engine: a
// single parameterized program model covering the hash-chain and
// recurrence algorithm families, the environment a program runs in, and
// the content-derived identity that binds receipts to a program.
package guest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gowebpki/jcs"

	"github.com/lambdaclass/zk-benchmarks/crypto"
	"github.com/lambdaclass/zk-benchmarks/journal"
)

// ErrInvalidProgram is returned for program descriptions that cannot run.
var ErrInvalidProgram = errors.New("guest: invalid program")

// identityTag domain-separates program identities from other keccak uses.
const identityTag = "zk-benchmarks/program/v1"

// Algorithm selects the computation family a program runs.
type Algorithm string

const (
	AlgHashChain  Algorithm = "hash-chain"
	AlgRecurrence Algorithm = "recurrence"
)

// Program is a complete, self-describing guest program. Its canonical JSON
// form is what the program identity is derived from, so every field that
// affects execution is serialized.
type Program struct {
	Name       string            `yaml:"name" json:"name"`
	Algorithm  Algorithm         `yaml:"algorithm" json:"algorithm"`
	HashChain  *HashChainParams  `yaml:"hash_chain,omitempty" json:"hash_chain,omitempty"`
	Recurrence *RecurrenceParams `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
}

// Input names one segment a program reads, in read order.
type Input struct {
	Name string
	// Kind describes the expected encoding: "bytes" for raw segments,
	// otherwise the CBOR-encoded word type ("u32", "u64", "u256").
	Kind string
}

// Validate checks that the program is well-formed.
func (p *Program) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil program", ErrInvalidProgram)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProgram)
	}
	var err error
	switch p.Algorithm {
	case AlgHashChain:
		if p.HashChain == nil || p.Recurrence != nil {
			return fmt.Errorf("%w: %s: hash-chain needs exactly the hash_chain block", ErrInvalidProgram, p.Name)
		}
		err = p.HashChain.validate()
	case AlgRecurrence:
		if p.Recurrence == nil || p.HashChain != nil {
			return fmt.Errorf("%w: %s: recurrence needs exactly the recurrence block", ErrInvalidProgram, p.Name)
		}
		err = p.Recurrence.validate()
	default:
		return fmt.Errorf("%w: %s: unknown algorithm %q", ErrInvalidProgram, p.Name, p.Algorithm)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidProgram, p.Name, err)
	}

	seen := make(map[string]bool)
	for _, in := range p.Inputs() {
		if in.Name == "" {
			return fmt.Errorf("%w: %s: empty input name", ErrInvalidProgram, p.Name)
		}
		if seen[in.Name] {
			return fmt.Errorf("%w: %s: input %q read twice", ErrInvalidProgram, p.Name, in.Name)
		}
		seen[in.Name] = true
	}
	return nil
}

// Run executes the program against env. Callers normally use Execute,
// which also validates the program and seals the journal.
func (p *Program) Run(env *Env) error {
	switch p.Algorithm {
	case AlgHashChain:
		return p.HashChain.run(env)
	case AlgRecurrence:
		return p.Recurrence.run(env)
	}
	return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidProgram, p.Algorithm)
}

// Inputs lists the segments the program reads, in the order it reads them.
func (p *Program) Inputs() []Input {
	switch {
	case p.Algorithm == AlgHashChain && p.HashChain != nil:
		return p.HashChain.inputs()
	case p.Algorithm == AlgRecurrence && p.Recurrence != nil:
		return p.Recurrence.inputs()
	}
	return nil
}

// Layout is the journal layout the program commits.
func (p *Program) Layout() journal.Layout {
	switch {
	case p.Algorithm == AlgHashChain && p.HashChain != nil:
		return p.HashChain.layout()
	case p.Algorithm == AlgRecurrence && p.Recurrence != nil:
		return p.Recurrence.layout()
	}
	return nil
}

// Canonical returns the RFC 8785 canonical JSON form of the program.
func (p *Program) Canonical() ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// ID derives the program identity: keccak256 over a version tag and the
// canonical JSON form. Programs with identical configuration always share
// an identity.
func (p *Program) ID() (common.Hash, error) {
	canon, err := p.Canonical()
	if err != nil {
		return common.Hash{}, fmt.Errorf("guest: canonicalize %s: %w", p.Name, err)
	}
	return crypto.Keccak256Hash([]byte(identityTag), canon), nil
}

// MustID is ID for programs known to serialize, such as the built-ins.
func (p *Program) MustID() common.Hash {
	id, err := p.ID()
	if err != nil {
		panic(err)
	}
	return id
}
