package asset

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe index of known assets by code and contract.
type Registry struct {
	byCode     map[string]*Asset
	byContract map[Address]*Asset
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCode:     make(map[string]*Asset),
		byContract: make(map[Address]*Asset),
	}
}

// Register adds a. Duplicate codes or contracts are rejected.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[a.code]; exists {
		return fmt.Errorf("asset: %s already registered", a.code)
	}
	if !a.contract.IsZero() {
		if _, exists := r.byContract[a.contract]; exists {
			return fmt.Errorf("asset: contract %s already registered", a.contract)
		}
		r.byContract[a.contract] = a
	}
	r.byCode[a.code] = a
	return nil
}

// ByCode looks up an asset by ticker.
func (r *Registry) ByCode(code string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byCode[code]
	return a, ok
}

// ByContract looks up an asset by contract address.
func (r *Registry) ByContract(addr Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byContract[addr]
	return a, ok
}

// Resolve maps an oracle ref back to registered metadata.
func (r *Registry) Resolve(ref Ref) (*Asset, bool) {
	if ref.Kind == RefContract {
		return r.ByContract(Address(ref.Value))
	}
	return r.ByCode(ref.Value)
}

// All returns registered assets sorted by code.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Asset, 0, len(r.byCode))
	for _, a := range r.byCode {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].code < out[j].code })
	return out
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCode)
}
