package app

import (
	"sort"
	"sync"

	"github.com/KPR-V/stellar/internal/asset"
)

// Directory maps oracle addresses to clients.
type Directory struct {
	mu      sync.RWMutex
	oracles map[asset.Address]PriceOracle
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{oracles: make(map[asset.Address]PriceOracle)}
}

// Register binds addr to oracle, replacing any previous binding.
func (d *Directory) Register(addr asset.Address, oracle PriceOracle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.oracles[addr] = oracle
}

// Lookup returns the client bound to addr.
func (d *Directory) Lookup(addr asset.Address) (PriceOracle, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.oracles[addr]
	return o, ok
}

// Addresses returns the registered oracle addresses in sorted order.
func (d *Directory) Addresses() []asset.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]asset.Address, 0, len(d.oracles))
	for a := range d.oracles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
