package zkvm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/lambdaclass/zk-benchmarks/guest"
)

func mustBuiltin(t *testing.T, name string) *guest.Program {
	t.Helper()
	p, ok := guest.Builtin(name)
	if !ok {
		t.Fatalf("builtin %q not found", name)
	}
	return p
}

func mustContext(t *testing.T, b *ContextBuilder) *ExecutionContext {
	t.Helper()
	ec, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ec
}

// wide256 reads its two seeds as 256-bit words.
func wide256() *guest.Program {
	return &guest.Program{
		Name:      "wide",
		Algorithm: guest.AlgRecurrence,
		Recurrence: &guest.RecurrenceParams{
			Width:      256,
			SeedInputs: []string{"a", "b"},
			N:          3,
		},
	}
}

// --- ContextBuilder ---

func TestBuild_NoInputs(t *testing.T) {
	p := mustBuiltin(t, guest.FibName)
	ec := mustContext(t, NewContextBuilder(p))
	if ec.Len() != 0 {
		t.Fatalf("Len = %d, want 0", ec.Len())
	}
	if ec.ProgramID() != p.MustID() {
		t.Fatal("context bound to the wrong program")
	}
	if ec.Used() {
		t.Fatal("fresh context reported as used")
	}
}

func TestBuild_OrderedInputs(t *testing.T) {
	p := mustBuiltin(t, guest.Fib1000Name)
	ec := mustContext(t, NewContextBuilder(p).Uint64("x0", 0).Uint64("x1", 1))
	names := ec.Names()
	if len(names) != 2 || names[0] != "x0" || names[1] != "x1" {
		t.Fatalf("Names = %v", names)
	}
}

func TestBuild_Rejects(t *testing.T) {
	fib1000 := mustBuiltin(t, guest.Fib1000Name)
	tests := []struct {
		name  string
		build *ContextBuilder
		want  error
	}{
		{"missing", NewContextBuilder(fib1000).Uint64("x0", 0), ErrMissingInput},
		{"unknown", NewContextBuilder(fib1000).Uint64("x0", 0).Uint64("x1", 1).Uint64("x2", 2), ErrUnknownInput},
		{"duplicate", NewContextBuilder(fib1000).Uint64("x0", 0).Uint64("x0", 1), ErrConfiguration},
		{"misordered", NewContextBuilder(fib1000).Uint64("x1", 1).Uint64("x0", 0), ErrConfiguration},
		{"not a word", NewContextBuilder(fib1000).Value("x0", "zero").Uint64("x1", 1), ErrConfiguration},
		{"undecodable", NewContextBuilder(fib1000).Input("x0", []byte{0xff}).Uint64("x1", 1), ErrConfiguration},
		{"unencodable", NewContextBuilder(fib1000).Value("x0", make(chan int)).Uint64("x1", 1), ErrConfiguration},
		{"input to inputless program", NewContextBuilder(mustBuiltin(t, guest.FibName)).Uint32("n", 3), ErrUnknownInput},
		{"invalid program", NewContextBuilder(&guest.Program{Name: "empty"}), ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec, err := tt.build.Build()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build err = %v, want %v", err, tt.want)
			}
			if ec != nil {
				t.Fatal("context returned alongside an error")
			}
		})
	}
}

func TestBuild_Uint256Width(t *testing.T) {
	p := wide256()
	max := new(uint256.Int).SetAllOne()
	if _, err := NewContextBuilder(p).Uint256("a", max).Uint256("b", nil).Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	over := make([]byte, 33)
	over[0] = 1
	_, err := NewContextBuilder(p).Value("a", over).Uint256("b", max).Build()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("33-byte word err = %v, want ErrConfiguration", err)
	}
}

func TestBuild_CopiesInput(t *testing.T) {
	p := &guest.Program{
		Name:      "echo",
		Algorithm: guest.AlgHashChain,
		HashChain: &guest.HashChainParams{
			Hash:     "sha256",
			Messages: []guest.Message{{Input: "msg"}},
		},
	}
	data := []byte("abc")
	b := NewContextBuilder(p).Input("msg", data)
	data[0] = 'x'
	ec := mustContext(t, b)
	segs, err := ec.claim()
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if string(segs[0].Data) != "abc" {
		t.Fatalf("segment aliased caller buffer: %q", segs[0].Data)
	}
}

// --- One-shot contexts ---

func TestContext_ClaimOnce(t *testing.T) {
	ec := mustContext(t, NewContextBuilder(mustBuiltin(t, guest.FibName)))
	if _, err := ec.claim(); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !ec.Used() {
		t.Fatal("claimed context not marked used")
	}
	if _, err := ec.claim(); !errors.Is(err, ErrContextConsumed) {
		t.Fatalf("second claim err = %v, want ErrContextConsumed", err)
	}
	if !errors.Is(ErrContextConsumed, ErrConfiguration) {
		t.Fatal("ErrContextConsumed should be a configuration error")
	}
}

func TestContext_NilClaim(t *testing.T) {
	var ec *ExecutionContext
	if _, err := ec.claim(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("nil claim err = %v", err)
	}
}
