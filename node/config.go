// Package node assembles a proving host from configuration: the program
// registry, the proving backend, the driver and the receipt store.
package node

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	zklog "github.com/lambdaclass/zk-benchmarks/log"
)

// ErrInvalidConfig is returned by Validate for unusable configurations.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Backend kinds.
const (
	BackendLocal       = "local"
	BackendAttested    = "attested"
	BackendUnavailable = "unavailable"
)

// Config holds all configuration for a proving host.
type Config struct {
	// DataDir is the root directory relative paths are resolved against.
	DataDir string `yaml:"datadir"`

	Log     LogConfig     `yaml:"log"`
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`

	// Manifests lists program manifest files registered next to the
	// built-in programs.
	Manifests []string `yaml:"manifests,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BackendConfig selects and parameterizes the proving backend.
type BackendConfig struct {
	Kind string `yaml:"kind"`

	// StepBudget bounds guest execution; zero selects the zkvm default.
	StepBudget uint64 `yaml:"step_budget,omitempty"`

	// AttestationIKM is the 0x-prefixed BLS key material of the attested
	// backend. Without it the backend can only verify, using VerifyKey.
	AttestationIKM string `yaml:"attestation_ikm,omitempty"`
	// VerifyKey is the 0x-prefixed compressed BLS public key receipts are
	// checked against when no key material is configured.
	VerifyKey string `yaml:"verify_key,omitempty"`

	// Reason is reported by the unavailable backend.
	Reason string `yaml:"reason,omitempty"`
}

// StoreConfig holds receipt store configuration.
type StoreConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path is the LevelDB directory; empty keeps receipts in memory.
	Path string `yaml:"path,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir: "zkhost-data",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Backend: BackendConfig{
			Kind: BackendLocal,
		},
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if _, err := zklog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	switch c.Backend.Kind {
	case BackendLocal, BackendUnavailable:
	case BackendAttested:
		if c.Backend.AttestationIKM == "" && c.Backend.VerifyKey == "" {
			return fmt.Errorf("%w: attested backend needs attestation_ikm or verify_key", ErrInvalidConfig)
		}
		if c.Backend.AttestationIKM != "" {
			ikm, err := hexutil.Decode(c.Backend.AttestationIKM)
			if err != nil {
				return fmt.Errorf("%w: attestation_ikm: %v", ErrInvalidConfig, err)
			}
			if len(ikm) < 32 {
				return fmt.Errorf("%w: attestation_ikm must be at least 32 bytes, have %d", ErrInvalidConfig, len(ikm))
			}
		}
		if c.Backend.VerifyKey != "" {
			if _, err := hexutil.Decode(c.Backend.VerifyKey); err != nil {
				return fmt.Errorf("%w: verify_key: %v", ErrInvalidConfig, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend.Kind)
	}

	for _, m := range c.Manifests {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("%w: empty manifest path", ErrInvalidConfig)
		}
	}
	return nil
}

// ResolvePath resolves a path relative to the data directory.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	level, _ := zklog.ParseLevel(c.Log.Level)
	return level
}
