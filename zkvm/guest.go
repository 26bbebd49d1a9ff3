package zkvm

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/lambdaclass/zk-benchmarks/guest"
)

// ExecutionContext is the immutable, ordered set of input segments one
// execution reads. It is bound to the program it was built for and can be
// handed to a backend exactly once.
type ExecutionContext struct {
	programID common.Hash
	segments  []guest.Segment

	// claimed is set when a backend takes the context for execution.
	claimed atomic.Bool
}

// ProgramID is the identity of the program the context was built for.
func (ec *ExecutionContext) ProgramID() common.Hash { return ec.programID }

// Len is the number of input segments.
func (ec *ExecutionContext) Len() int { return len(ec.segments) }

// Names lists the segment names in read order.
func (ec *ExecutionContext) Names() []string {
	names := make([]string, len(ec.segments))
	for i, s := range ec.segments {
		names[i] = s.Name
	}
	return names
}

// Used reports whether the context has already been claimed.
func (ec *ExecutionContext) Used() bool { return ec.claimed.Load() }

// claim hands the segments to exactly one execution.
func (ec *ExecutionContext) claim() ([]guest.Segment, error) {
	if ec == nil {
		return nil, fmt.Errorf("%w: nil execution context", ErrConfiguration)
	}
	if !ec.claimed.CompareAndSwap(false, true) {
		return nil, ErrContextConsumed
	}
	return ec.segments, nil
}

// ContextBuilder assembles an ExecutionContext for one program. Segments
// are kept in the order they are added, which must match the order the
// program reads them. The first encoding error is reported by Build.
type ContextBuilder struct {
	program  *guest.Program
	segments []guest.Segment
	err      error
}

// NewContextBuilder starts a context for program.
func NewContextBuilder(program *guest.Program) *ContextBuilder {
	return &ContextBuilder{program: program}
}

// Input adds a raw byte segment.
func (b *ContextBuilder) Input(name string, data []byte) *ContextBuilder {
	cp := make([]byte, len(data))
	copy(cp, data)
	b.segments = append(b.segments, guest.Segment{Name: name, Data: cp})
	return b
}

// Value adds a CBOR-encoded typed segment.
func (b *ContextBuilder) Value(name string, v any) *ContextBuilder {
	data, err := cbor.Marshal(v)
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("%w: encode %q: %v", ErrConfiguration, name, err)
		}
		return b
	}
	b.segments = append(b.segments, guest.Segment{Name: name, Data: data})
	return b
}

// Uint32 adds a 32-bit word segment.
func (b *ContextBuilder) Uint32(name string, v uint32) *ContextBuilder { return b.Value(name, v) }

// Uint64 adds a 64-bit word segment.
func (b *ContextBuilder) Uint64(name string, v uint64) *ContextBuilder { return b.Value(name, v) }

// Uint256 adds a 256-bit word segment as a big-endian byte string.
func (b *ContextBuilder) Uint256(name string, v *uint256.Int) *ContextBuilder {
	if v == nil {
		v = new(uint256.Int)
	}
	return b.Value(name, v.Bytes())
}

// Build validates the collected segments against the program's declared
// inputs and returns the context. Missing, unknown, duplicate, misordered
// or undecodable inputs fail with ErrConfiguration.
func (b *ContextBuilder) Build() (*ExecutionContext, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.program.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	id, err := b.program.ID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	want := b.program.Inputs()
	expected := make(map[string]guest.Input, len(want))
	for _, in := range want {
		expected[in.Name] = in
	}
	supplied := make(map[string]bool, len(b.segments))
	for _, seg := range b.segments {
		in, ok := expected[seg.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not read by %s", ErrUnknownInput, seg.Name, b.program.Name)
		}
		if supplied[seg.Name] {
			return nil, fmt.Errorf("%w: input %q supplied twice", ErrConfiguration, seg.Name)
		}
		supplied[seg.Name] = true
		if err := checkSegment(in, seg.Data); err != nil {
			return nil, err
		}
	}
	for i, in := range want {
		if !supplied[in.Name] {
			return nil, fmt.Errorf("%w: %s needs %q (%s)", ErrMissingInput, b.program.Name, in.Name, in.Kind)
		}
		if b.segments[i].Name != in.Name {
			return nil, fmt.Errorf("%w: input %d is %q, %s reads %q there",
				ErrConfiguration, i, b.segments[i].Name, b.program.Name, in.Name)
		}
	}

	segs := make([]guest.Segment, len(b.segments))
	copy(segs, b.segments)
	return &ExecutionContext{programID: id, segments: segs}, nil
}

// checkSegment decodes a typed segment the way the guest will.
func checkSegment(in guest.Input, data []byte) error {
	var err error
	switch in.Kind {
	case "u32":
		var v uint32
		err = cbor.Unmarshal(data, &v)
	case "u64":
		var v uint64
		err = cbor.Unmarshal(data, &v)
	case "u256":
		var v []byte
		if err = cbor.Unmarshal(data, &v); err == nil && len(v) > 32 {
			err = errors.New("exceeds 256 bits")
		}
	}
	if err != nil {
		return fmt.Errorf("%w: input %q is not a valid %s: %v", ErrConfiguration, in.Name, in.Kind, err)
	}
	return nil
}
