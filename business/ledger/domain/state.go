package domain

import (
	"slices"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// Venue is a registered swap venue.
type Venue = arbDomain.Venue

// Oracles are the addresses the gateway routes by category.
type Oracles struct {
	Forex  asset.Address
	Crypto asset.Address
	Native asset.Address
}

// State is everything the engine owns.
type State struct {
	Initialized bool
	Admin       asset.Address
	Governance  asset.Address // zero until set
	Keepers     []asset.Address
	Config      Config
	Oracles     Oracles
	RiskGate    asset.Address
	Pairs       []arbDomain.EnhancedPair
	Venues      []Venue
	History     []execDomain.Execution
	Accounts    map[asset.Address]*Account
	Histories   map[asset.Address]*AccountHistory
}

// NewState returns an uninitialized state.
func NewState() *State {
	return &State{
		Accounts:  make(map[asset.Address]*Account),
		Histories: make(map[asset.Address]*AccountHistory),
	}
}

// IsKeeperOrAdmin reports whether addr may run pool executions.
func (s *State) IsKeeperOrAdmin(addr asset.Address) bool {
	return addr == s.Admin || slices.Contains(s.Keepers, addr)
}

// IsGovernanceOrAdmin reports whether addr may use the governance mutators.
func (s *State) IsGovernanceOrAdmin(addr asset.Address) bool {
	return addr == s.Admin || (!s.Governance.IsZero() && addr == s.Governance)
}

// EnabledVenues returns the venues not disabled, in registration order.
func (s *State) EnabledVenues() []Venue {
	var out []Venue
	for _, v := range s.Venues {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a deep copy safe to mutate.
func (s *State) Clone() *State {
	c := *s
	c.Keepers = slices.Clone(s.Keepers)
	c.Pairs = s.ClonePairs()
	c.Venues = slices.Clone(s.Venues)
	c.History = slices.Clone(s.History)
	c.Accounts = make(map[asset.Address]*Account, len(s.Accounts))
	for k, a := range s.Accounts {
		c.Accounts[k] = a.Clone()
	}
	c.Histories = make(map[asset.Address]*AccountHistory, len(s.Histories))
	for k, h := range s.Histories {
		c.Histories[k] = h.clone()
	}
	return &c
}

// ClonePairs copies the pair registry, including each pair's source lists.
func (s *State) ClonePairs() []arbDomain.EnhancedPair {
	out := make([]arbDomain.EnhancedPair, len(s.Pairs))
	for i, p := range s.Pairs {
		p.FiatSources = slices.Clone(p.FiatSources)
		p.StableSources = slices.Clone(p.StableSources)
		out[i] = p
	}
	return out
}
