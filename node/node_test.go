package node

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lambdaclass/zk-benchmarks/guest"
	"github.com/lambdaclass/zk-benchmarks/log"
	"github.com/lambdaclass/zk-benchmarks/store"
	"github.com/lambdaclass/zk-benchmarks/zkvm"
)

func newTestNode(t *testing.T, mutate func(*Config)) *Node {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	n, err := New(&cfg, log.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { n.Close() })
	return n
}

func TestNew_Defaults(t *testing.T) {
	n := newTestNode(t, nil)
	if n.Backend().Name() != "local" {
		t.Errorf("backend = %s", n.Backend().Name())
	}
	if n.Store() != nil {
		t.Error("store opened although disabled")
	}
	if n.Registry().Count() != len(guest.Builtins()) {
		t.Errorf("registry holds %d programs", n.Registry().Count())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Kind = "nope"
	if _, err := New(&cfg, log.Discard()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestNode_ProveAndVerify(t *testing.T) {
	n := newTestNode(t, nil)
	out, err := n.Prove(context.Background(), guest.FibName, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if out.Stored {
		t.Error("receipt stored with the store disabled")
	}
	want, _ := out.Receipt.Digest()
	if out.Digest != want {
		t.Error("outcome digest does not match receipt")
	}
	ok, err := n.Verify(context.Background(), guest.FibName, out.Receipt)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
	ok, err = n.Verify(context.Background(), guest.Fib90Name, out.Receipt)
	if err != nil || ok {
		t.Fatalf("Verify under another program = %v, %v", ok, err)
	}
	if _, err := n.VerifyStored(context.Background(), out.Digest); !errors.Is(err, ErrStoreDisabled) {
		t.Fatalf("VerifyStored err = %v", err)
	}
}

func TestNode_ProveWithInputs(t *testing.T) {
	n := newTestNode(t, nil)
	out, err := n.Prove(context.Background(), guest.Fib1000Name, func(b *zkvm.ContextBuilder) {
		b.Uint64("x0", 0).Uint64("x1", 1)
	})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if out.Info.Steps != 1000 {
		t.Fatalf("steps = %d", out.Info.Steps)
	}

	if _, err := n.Prove(context.Background(), guest.Fib1000Name, nil); !errors.Is(err, zkvm.ErrMissingInput) {
		t.Fatalf("missing inputs err = %v", err)
	}
	if _, err := n.Prove(context.Background(), "fib2000", nil); !errors.Is(err, zkvm.ErrProgramNotRegistered) {
		t.Fatalf("unknown program err = %v", err)
	}
}

func TestNode_Store(t *testing.T) {
	n := newTestNode(t, func(c *Config) {
		c.Store.Enabled = true
		c.Store.Path = "receipts"
	})
	out, err := n.Prove(context.Background(), guest.Blake2Name, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if !out.Stored {
		t.Fatal("receipt not stored")
	}
	ok, err := n.VerifyStored(context.Background(), out.Digest)
	if err != nil || !ok {
		t.Fatalf("VerifyStored = %v, %v", ok, err)
	}
	digests, err := n.Store().ListByProgram(out.Info.ProgramID)
	if err != nil || len(digests) != 1 {
		t.Fatalf("ListByProgram = %v, %v", digests, err)
	}
	if _, err := os.Stat(filepath.Join(n.Config().DataDir, "receipts")); err != nil {
		t.Fatalf("store directory missing: %v", err)
	}
	if _, err := n.VerifyStored(context.Background(), [32]byte{9}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing digest err = %v", err)
	}
}

func TestNode_Attested(t *testing.T) {
	prover := newTestNode(t, func(c *Config) {
		c.Backend.Kind = BackendAttested
		c.Backend.AttestationIKM = testIKM
	})
	out, err := prover.Prove(context.Background(), guest.KeccakName, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if out.Receipt.ProofSystem != zkvm.ProofSystemAttested {
		t.Fatalf("proof system = %s", out.Receipt.ProofSystem)
	}

	pk := prover.Backend().(*zkvm.AttestingBackend).PublicKey()
	verifier := newTestNode(t, func(c *Config) {
		c.Backend.Kind = BackendAttested
		c.Backend.VerifyKey = hexutil.Encode(pk)
	})
	ok, err := verifier.Verify(context.Background(), guest.KeccakName, out.Receipt)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
	if _, err := verifier.Prove(context.Background(), guest.KeccakName, nil); !errors.Is(err, zkvm.ErrBackendUnavailable) {
		t.Fatalf("verify-only Prove err = %v", err)
	}
}

func TestNode_Unavailable(t *testing.T) {
	n := newTestNode(t, func(c *Config) {
		c.Backend.Kind = BackendUnavailable
		c.Backend.Reason = "maintenance"
	})
	if _, err := n.Prove(context.Background(), guest.FibName, nil); !errors.Is(err, zkvm.ErrBackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestNode_Manifests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "programs.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0o600); err != nil {
		t.Fatal(err)
	}
	n := newTestNode(t, func(c *Config) { c.Manifests = []string{path} })
	if n.Registry().Count() != len(guest.Builtins())+2 {
		t.Fatalf("registry holds %d programs", n.Registry().Count())
	}
	out, err := n.Prove(context.Background(), "sha-twice", func(b *zkvm.ContextBuilder) {
		b.Input("payload", []byte("hello"))
	})
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(out.Receipt.Journal) != 32 {
		t.Fatalf("journal length = %d", len(out.Receipt.Journal))
	}
}

func TestNode_Close(t *testing.T) {
	n := newTestNode(t, func(c *Config) { c.Store.Enabled = true })
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := n.Prove(context.Background(), guest.FibName, nil); !errors.Is(err, ErrNodeClosed) {
		t.Fatalf("Prove after Close err = %v", err)
	}
}
