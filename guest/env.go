package guest

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/lambdaclass/zk-benchmarks/crypto"
	"github.com/lambdaclass/zk-benchmarks/journal"
)

// Guest execution faults. Every fault is fatal to the execution that
// raised it and leaves no usable journal behind.
var (
	ErrGuestFault         = errors.New("guest: execution fault")
	ErrInputExhausted     = fmt.Errorf("%w: read past end of input", ErrGuestFault)
	ErrInputOutOfOrder    = fmt.Errorf("%w: input read out of order", ErrGuestFault)
	ErrInputMalformed     = fmt.Errorf("%w: malformed input segment", ErrGuestFault)
	ErrStepBudgetExceeded = fmt.Errorf("%w: step budget exceeded", ErrGuestFault)
	ErrGuestPanicked      = fmt.Errorf("%w: guest panicked", ErrGuestFault)
)

// Segment is one named input segment supplied by the host.
type Segment struct {
	Name string
	Data []byte
}

// EnvConfig bounds a single execution.
type EnvConfig struct {
	// StepBudget is the maximum number of steps the guest may take. Zero
	// means unbounded; hosts should always set one.
	StepBudget uint64

	// RecordTrace folds a leaf per step into the trace commitment.
	RecordTrace bool
}

// Env is the explicit execution environment threaded through a guest run:
// its journal, its read-once input cursor and its step meter. An Env is
// scoped to exactly one execution and is not safe for concurrent use.
type Env struct {
	journal *journal.Journal
	inputs  []Segment
	cursor  int

	budget uint64
	steps  uint64
	trace  *crypto.MerkleAccumulator // nil unless tracing
}

// NewEnv creates an environment over the given input segments. The
// segments are read in order; the slice is not copied.
func NewEnv(inputs []Segment, cfg EnvConfig) *Env {
	e := &Env{
		journal: journal.New(),
		inputs:  inputs,
		budget:  cfg.StepBudget,
	}
	if cfg.RecordTrace {
		e.trace = new(crypto.MerkleAccumulator)
	}
	return e
}

// Commit appends v to the journal.
func (e *Env) Commit(v journal.Value) error {
	if err := e.journal.Commit(v); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrGuestFault, err)
	}
	return nil
}

// Read consumes the next input segment, which must be the one named name.
func (e *Env) Read(name string) ([]byte, error) {
	if e.cursor >= len(e.inputs) {
		return nil, fmt.Errorf("%w: want %q", ErrInputExhausted, name)
	}
	seg := e.inputs[e.cursor]
	if seg.Name != name {
		return nil, fmt.Errorf("%w: want %q, next is %q", ErrInputOutOfOrder, name, seg.Name)
	}
	e.cursor++
	return seg.Data, nil
}

// ReadValue consumes the next segment and decodes it as CBOR into v.
func (e *Env) ReadValue(name string, v any) error {
	data, err := e.Read(name)
	if err != nil {
		return err
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInputMalformed, name, err)
	}
	return nil
}

// ReadUint32 consumes a CBOR-encoded 32-bit word.
func (e *Env) ReadUint32(name string) (uint32, error) {
	var v uint32
	err := e.ReadValue(name, &v)
	return v, err
}

// ReadUint64 consumes a CBOR-encoded 64-bit word.
func (e *Env) ReadUint64(name string) (uint64, error) {
	var v uint64
	err := e.ReadValue(name, &v)
	return v, err
}

// ReadUint256 consumes a CBOR byte string holding a big-endian word of at
// most 32 bytes.
func (e *Env) ReadUint256(name string) (*uint256.Int, error) {
	var b []byte
	if err := e.ReadValue(name, &b); err != nil {
		return nil, err
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("%w: %q: %d bytes exceeds 256 bits", ErrInputMalformed, name, len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}

// Remaining is the number of unread input segments.
func (e *Env) Remaining() int { return len(e.inputs) - e.cursor }

// Step charges one step against the budget. state is folded into the
// trace leaf for the step when tracing is enabled.
func (e *Env) Step(state []byte) error {
	if e.budget > 0 && e.steps >= e.budget {
		return fmt.Errorf("%w: %d steps", ErrStepBudgetExceeded, e.budget)
	}
	if e.trace != nil {
		var idx [8]byte
		binary.LittleEndian.PutUint64(idx[:], e.steps)
		h := sha256.New()
		h.Write(idx[:])
		h.Write(state)
		var leaf [32]byte
		copy(leaf[:], h.Sum(nil))
		e.trace.Add(leaf)
	}
	e.steps++
	return nil
}

// Steps is the number of steps taken so far.
func (e *Env) Steps() uint64 { return e.steps }

// JournalLen is the current journal length in bytes.
func (e *Env) JournalLen() int { return e.journal.Len() }

// Execution is the outcome of one completed guest run.
type Execution struct {
	Journal []byte
	Commits int
	Steps   uint64
	// TraceRoot is the Merkle root over one leaf per step when tracing was
	// enabled.
	TraceRoot [32]byte
}

// Execute runs p over inputs in a fresh environment and returns the sealed
// journal. On any fault the partial journal is discarded.
func Execute(p *Program, inputs []Segment, cfg EnvConfig) (exec *Execution, err error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	env := NewEnv(inputs, cfg)

	defer func() {
		if r := recover(); r != nil {
			exec, err = nil, fmt.Errorf("%w: %v", ErrGuestPanicked, r)
		}
	}()

	if err := p.Run(env); err != nil {
		return nil, err
	}
	out := &Execution{
		Journal: env.journal.Seal(),
		Commits: env.journal.Commits(),
		Steps:   env.steps,
	}
	if env.trace != nil {
		out.TraceRoot = env.trace.Root()
	}
	return out, nil
}
