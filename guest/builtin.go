package guest

import (
	"sort"

	"github.com/lambdaclass/zk-benchmarks/crypto"
)

// Names of the built-in benchmark programs.
const (
	FibName       = "fib"
	Fib90Name     = "fib90"
	Fib90LoopName = "fib90-loop"
	Fib1000Name   = "fib1000"
	Blake2Name    = "blake2"
	KeccakName    = "keccak"
)

// KeccakMask keeps the low two bits of the first digest byte, reducing a
// keccak digest to 250 significant bits.
const KeccakMask uint8 = 0x03

func builtins() map[string]*Program {
	mask := KeccakMask
	return map[string]*Program{
		FibName: {
			Name:       FibName,
			Algorithm:  AlgRecurrence,
			Recurrence: &RecurrenceParams{Width: 32, X0: 0, X1: 1, N: 10},
		},
		// (1, 0) makes term n the n-th Fibonacci number.
		Fib90Name: {
			Name:       Fib90Name,
			Algorithm:  AlgRecurrence,
			Recurrence: &RecurrenceParams{Width: 64, X0: 1, X1: 0, N: 90},
		},
		Fib90LoopName: {
			Name:      Fib90LoopName,
			Algorithm: AlgRecurrence,
			Recurrence: &RecurrenceParams{
				Width:  64,
				X0:     1,
				X1:     0,
				Series: &Series{Start: 0, Stride: 10, Count: 10},
			},
		},
		Fib1000Name: {
			Name:      Fib1000Name,
			Algorithm: AlgRecurrence,
			Recurrence: &RecurrenceParams{
				Width:      64,
				SeedInputs: []string{"x0", "x1"},
				N:          1000,
			},
		},
		Blake2Name: {
			Name:      Blake2Name,
			Algorithm: AlgHashChain,
			HashChain: &HashChainParams{
				Hash:     crypto.Blake2s256Func,
				Messages: []Message{{Text: "A"}, {Text: "B"}, {Text: "C"}},
				Commit:   []int{0},
				Encoding: EncodeWords32,
			},
		},
		KeccakName: {
			Name:      KeccakName,
			Algorithm: AlgHashChain,
			HashChain: &HashChainParams{
				Hash:     crypto.Keccak256Func,
				Messages: []Message{{Text: "hello world"}},
				Encoding: EncodeDigest,
				Mask:     &mask,
			},
		},
	}
}

// Builtin returns a fresh copy of the named built-in program.
func Builtin(name string) (*Program, bool) {
	p, ok := builtins()[name]
	return p, ok
}

// Builtins returns fresh copies of every built-in program, sorted by name.
func Builtins() []*Program {
	all := builtins()
	out := make([]*Program, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
