package node

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lambdaclass/zk-benchmarks/guest"
)

// LoadConfig parses a YAML configuration. Unset fields keep their
// DefaultConfig values and unknown keys are rejected.
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses the configuration at path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	cfg, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	return cfg, nil
}

// Manifest is a YAML document declaring guest programs.
type Manifest struct {
	Programs []*guest.Program `yaml:"programs"`
}

// LoadManifest parses a program manifest and validates every program in
// it. Program names must be unique within a manifest.
func LoadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decodeStrict(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Programs) == 0 {
		return nil, fmt.Errorf("%w: manifest declares no programs", guest.ErrInvalidProgram)
	}
	seen := make(map[string]bool, len(m.Programs))
	for i, p := range m.Programs {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("manifest program %d: %w", i, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %q declared twice", guest.ErrInvalidProgram, p.Name)
		}
		seen[p.Name] = true
	}
	return &m, nil
}

// LoadManifestFile reads and parses the manifest at path.
func LoadManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest %q: %w", path, err)
	}
	m, err := LoadManifest(data)
	if err != nil {
		return nil, fmt.Errorf("load manifest %q: %w", path, err)
	}
	return m, nil
}

// decodeStrict decodes a single YAML document, rejecting unknown fields.
// An empty document leaves v untouched.
func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
