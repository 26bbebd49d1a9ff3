package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lambdaclass/zk-benchmarks/crypto"
	"github.com/lambdaclass/zk-benchmarks/guest"
	"github.com/lambdaclass/zk-benchmarks/log"
	"github.com/lambdaclass/zk-benchmarks/store"
	"github.com/lambdaclass/zk-benchmarks/zkvm"
)

var (
	ErrNodeClosed    = errors.New("node: closed")
	ErrStoreDisabled = errors.New("node: receipt store disabled")
)

// Node is a configured proving host.
type Node struct {
	config *Config
	log    *log.Logger

	registry *zkvm.Registry
	backend  zkvm.Backend
	driver   *zkvm.Driver
	store    *store.ReceiptStore // nil when disabled

	mu     sync.Mutex
	closed bool
}

// Outcome is the result of one proof attempt made through a Node.
type Outcome struct {
	Receipt *zkvm.Receipt
	Info    *zkvm.ProveInfo
	// Digest identifies the receipt; it is also its store key.
	Digest common.Hash
	Stored bool
}

// New creates a Node from config. A nil config selects DefaultConfig and a
// nil logger writes to stderr in the configured format.
func New(config *Config, logger *log.Logger) (*Node, error) {
	if config == nil {
		c := DefaultConfig()
		config = &c
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWriter(os.Stderr, config.LogLevel(), config.Log.Format == "text")
	}

	n := &Node{
		config:   config,
		log:      logger.Module("node"),
		registry: zkvm.NewBuiltinRegistry(),
	}
	for _, path := range config.Manifests {
		m, err := LoadManifestFile(path)
		if err != nil {
			return nil, err
		}
		for _, p := range m.Programs {
			id, err := n.registry.Register(p)
			if err != nil {
				return nil, fmt.Errorf("register %s from %s: %w", p.Name, path, err)
			}
			n.log.Debug("Registered program", "name", p.Name, "id", id.TerminalString())
		}
	}

	backend, err := newBackend(config.Backend)
	if err != nil {
		return nil, err
	}
	n.backend = backend
	n.driver = zkvm.NewDriver(backend, logger)

	if config.Store.Enabled {
		s, err := store.Open(config.ResolvePath(config.Store.Path))
		if err != nil {
			return nil, err
		}
		n.store = s
	}

	n.log.Info("Proving host ready",
		"backend", backend.Name(),
		"programs", n.registry.Count(),
		"store", config.Store.Enabled)
	return n, nil
}

func newBackend(cfg BackendConfig) (zkvm.Backend, error) {
	bcfg := zkvm.BackendConfig{StepBudget: cfg.StepBudget}
	switch cfg.Kind {
	case BackendLocal:
		return zkvm.NewLocalBackend(bcfg), nil
	case BackendAttested:
		if cfg.AttestationIKM != "" {
			ikm, err := hexutil.Decode(cfg.AttestationIKM)
			if err != nil {
				return nil, fmt.Errorf("%w: attestation_ikm: %v", ErrInvalidConfig, err)
			}
			signer, err := crypto.NewBLSSigner(ikm)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
			}
			return zkvm.NewAttestingBackend(signer, bcfg), nil
		}
		pk, err := hexutil.Decode(cfg.VerifyKey)
		if err != nil {
			return nil, fmt.Errorf("%w: verify_key: %v", ErrInvalidConfig, err)
		}
		return zkvm.NewAttestingVerifier(pk)
	case BackendUnavailable:
		return &zkvm.UnavailableBackend{Reason: cfg.Reason, System: zkvm.ProofSystemLocal}, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Kind)
}

// Prove looks up the named program, builds its execution context with fill
// and runs one proof attempt. Successful receipts are stored when the
// store is enabled.
func (n *Node) Prove(ctx context.Context, name string, fill func(*zkvm.ContextBuilder)) (*Outcome, error) {
	if err := n.checkOpen(); err != nil {
		return nil, err
	}
	program, _, err := n.registry.LookupName(name)
	if err != nil {
		return nil, err
	}
	b := zkvm.NewContextBuilder(program)
	if fill != nil {
		fill(b)
	}
	ec, err := b.Build()
	if err != nil {
		return nil, err
	}

	receipt, info, err := n.driver.Prove(ctx, program, ec)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Receipt: receipt, Info: info}
	if n.store != nil {
		out.Digest, err = n.store.Put(info.ProgramID, receipt)
		if err != nil {
			return nil, err
		}
		out.Stored = true
	} else if out.Digest, err = receipt.Digest(); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify checks receipt against the named program.
func (n *Node) Verify(ctx context.Context, name string, receipt *zkvm.Receipt) (bool, error) {
	if err := n.checkOpen(); err != nil {
		return false, err
	}
	_, id, err := n.registry.LookupName(name)
	if err != nil {
		return false, err
	}
	return n.driver.Verify(ctx, receipt, id)
}

// VerifyStored fetches a stored receipt and verifies it against the
// program it was stored for.
func (n *Node) VerifyStored(ctx context.Context, digest common.Hash) (bool, error) {
	if err := n.checkOpen(); err != nil {
		return false, err
	}
	if n.store == nil {
		return false, ErrStoreDisabled
	}
	entry, err := n.store.Get(digest)
	if err != nil {
		return false, err
	}
	if _, err := n.registry.Lookup(entry.ProgramID); err != nil {
		return false, err
	}
	return n.driver.Verify(ctx, entry.Receipt, entry.ProgramID)
}

// Program returns the named program and its identity.
func (n *Node) Program(name string) (*guest.Program, common.Hash, error) {
	return n.registry.LookupName(name)
}

// Registry returns the program registry.
func (n *Node) Registry() *zkvm.Registry { return n.registry }

// Backend returns the proving backend.
func (n *Node) Backend() zkvm.Backend { return n.backend }

// Driver returns the proof driver.
func (n *Node) Driver() *zkvm.Driver { return n.driver }

// Store returns the receipt store, or nil when it is disabled.
func (n *Node) Store() *store.ReceiptStore { return n.store }

// Config returns the node configuration.
func (n *Node) Config() *Config { return n.config }

// Close releases the receipt store. It is safe to call more than once.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	if n.store != nil {
		if err := n.store.Close(); err != nil {
			return fmt.Errorf("node: close store: %w", err)
		}
	}
	n.log.Debug("Proving host closed")
	return nil
}

func (n *Node) checkOpen() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	return nil
}
