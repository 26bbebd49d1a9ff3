package zkvm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/zk-benchmarks/guest"
)

// Registry errors.
var (
	ErrProgramNotRegistered     = errors.New("zkvm: program not registered")
	ErrProgramAlreadyRegistered = errors.New("zkvm: program already registered")
)

// Registry maps program identities and names to programs. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	programs map[common.Hash]*guest.Program
	byName   map[string]common.Hash
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		programs: make(map[common.Hash]*guest.Program),
		byName:   make(map[string]common.Hash),
	}
}

// NewBuiltinRegistry returns a registry holding every built-in program.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, p := range guest.Builtins() {
		if _, err := r.Register(p); err != nil {
			panic(fmt.Sprintf("zkvm: register builtin %s: %v", p.Name, err))
		}
	}
	return r
}

// Register validates p and records it under its identity and name.
func (r *Registry) Register(p *guest.Program) (common.Hash, error) {
	if err := p.Validate(); err != nil {
		return common.Hash{}, err
	}
	id, err := p.ID()
	if err != nil {
		return common.Hash{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.programs[id]; exists {
		return id, ErrProgramAlreadyRegistered
	}
	if _, exists := r.byName[p.Name]; exists {
		return id, fmt.Errorf("%w: name %q", ErrProgramAlreadyRegistered, p.Name)
	}
	r.programs[id] = p
	r.byName[p.Name] = id
	return id, nil
}

// Lookup returns the program registered under id.
func (r *Registry) Lookup(id common.Hash) (*guest.Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.programs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotRegistered, id.Hex())
	}
	return p, nil
}

// LookupName returns the program registered under name and its identity.
func (r *Registry) LookupName(name string) (*guest.Program, common.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, common.Hash{}, fmt.Errorf("%w: %q", ErrProgramNotRegistered, name)
	}
	return r.programs[id], id, nil
}

// Programs returns every registered program sorted by name.
func (r *Registry) Programs() []*guest.Program {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*guest.Program, 0, len(r.programs))
	for _, p := range r.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered programs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.programs)
}
