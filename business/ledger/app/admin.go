package app

import (
	"context"
	"slices"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
)

// Initialize sets the admin, global config, oracle addresses and risk gate.
// It succeeds exactly once.
func (e *Engine) Initialize(
	ctx context.Context,
	admin asset.Address,
	cfg domain.Config,
	oracles domain.Oracles,
	riskGate asset.Address,
) error {
	if admin.IsZero() {
		return apperror.Validation(apperror.CodeInvalidInput, "admin address is required")
	}
	err := e.Transact(ctx, "initialize", func(tx *Tx) error {
		if tx.State.Initialized {
			return apperror.Conflict(apperror.CodeAlreadyInitialized, "engine")
		}
		tx.State.Initialized = true
		tx.State.Admin = admin
		tx.State.Config = cfg
		tx.State.Oracles = oracles
		tx.State.RiskGate = riskGate
		return nil
	})
	if err == nil {
		e.log.Info(ctx, "engine initialized", "admin", admin.Short(), "enabled", cfg.Enabled)
	}
	return err
}

// SetGovernance designates the governance address. It succeeds once.
func (e *Engine) SetGovernance(ctx context.Context, caller, governance asset.Address) error {
	return e.Transact(ctx, "set_governance", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		if !tx.State.Governance.IsZero() {
			return apperror.Conflict(apperror.CodeGovernanceAlreadySet, governance.Short())
		}
		if governance.IsZero() {
			return apperror.Validation(apperror.CodeInvalidInput, "governance address is required")
		}
		tx.State.Governance = governance
		return nil
	})
}

// AddKeeper allows keeper to run pool executions.
func (e *Engine) AddKeeper(ctx context.Context, caller, keeper asset.Address) error {
	return e.Transact(ctx, "add_keeper", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		if !slices.Contains(tx.State.Keepers, keeper) {
			tx.State.Keepers = append(tx.State.Keepers, keeper)
		}
		return nil
	})
}

// TransferAdmin hands the admin role to next.
func (e *Engine) TransferAdmin(ctx context.Context, caller, next asset.Address) error {
	return e.Transact(ctx, "transfer_admin", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		if next.IsZero() {
			return apperror.Validation(apperror.CodeInvalidInput, "admin address is required")
		}
		tx.State.Admin = next
		return nil
	})
}

// AddPair registers a basic pair with the default sources and limits.
func (e *Engine) AddPair(ctx context.Context, caller asset.Address, pair arbDomain.TradingPair) error {
	return e.AddEnhancedPair(ctx, caller, arbDomain.FromBasic(pair))
}

// AddEnhancedPair registers pair, replacing one with the same legs.
func (e *Engine) AddEnhancedPair(ctx context.Context, caller asset.Address, pair arbDomain.EnhancedPair) error {
	return e.Transact(ctx, "add_pair", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		return upsertPair(tx.State, pair)
	})
}

// AddCryptoPair registers a crypto-to-crypto pair.
func (e *Engine) AddCryptoPair(
	ctx context.Context,
	caller asset.Address,
	base, quote string,
	quoteAddress asset.Address,
	thresholdBps uint32,
) error {
	return e.AddEnhancedPair(ctx, caller, arbDomain.CryptoPair(base, quote, quoteAddress, thresholdBps))
}

// AddVenue appends venue to the registry.
func (e *Engine) AddVenue(ctx context.Context, caller asset.Address, venue domain.Venue) error {
	return e.Transact(ctx, "add_venue", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		return appendVenue(tx.State, venue)
	})
}

// PausePair disables every pair tracking stableSymbol.
func (e *Engine) PausePair(ctx context.Context, caller asset.Address, stableSymbol string) error {
	return e.Transact(ctx, "pause_pair", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		return pausePair(tx.State, stableSymbol)
	})
}

// UpdateConfig replaces the global config.
func (e *Engine) UpdateConfig(ctx context.Context, caller asset.Address, cfg domain.Config) error {
	return e.Transact(ctx, "update_config", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		tx.State.Config = cfg
		return nil
	})
}

// EmergencyStop disables pool trading.
func (e *Engine) EmergencyStop(ctx context.Context, caller asset.Address) error {
	err := e.Transact(ctx, "emergency_stop", func(tx *Tx) error {
		if err := requireAdmin(tx.State, caller); err != nil {
			return err
		}
		tx.State.Config.Enabled = false
		return nil
	})
	if err == nil {
		e.log.Warn(ctx, "emergency stop engaged", "caller", caller.Short())
	}
	return err
}

// UpdateConfigGov is UpdateConfig for the governance address.
func (e *Engine) UpdateConfigGov(ctx context.Context, caller asset.Address, cfg domain.Config) error {
	return e.Transact(ctx, "update_config_gov", func(tx *Tx) error {
		if err := requireGovernance(tx.State, caller); err != nil {
			return err
		}
		tx.State.Config = cfg
		return nil
	})
}

// AddEnhancedPairGov is AddEnhancedPair for the governance address.
func (e *Engine) AddEnhancedPairGov(ctx context.Context, caller asset.Address, pair arbDomain.EnhancedPair) error {
	return e.Transact(ctx, "add_pair_gov", func(tx *Tx) error {
		if err := requireGovernance(tx.State, caller); err != nil {
			return err
		}
		return upsertPair(tx.State, pair)
	})
}

// AddVenueGov is AddVenue for the governance address.
func (e *Engine) AddVenueGov(ctx context.Context, caller asset.Address, venue domain.Venue) error {
	return e.Transact(ctx, "add_venue_gov", func(tx *Tx) error {
		if err := requireGovernance(tx.State, caller); err != nil {
			return err
		}
		return appendVenue(tx.State, venue)
	})
}

// PausePairGov is PausePair for the governance address.
func (e *Engine) PausePairGov(ctx context.Context, caller asset.Address, stableSymbol string) error {
	return e.Transact(ctx, "pause_pair_gov", func(tx *Tx) error {
		if err := requireGovernance(tx.State, caller); err != nil {
			return err
		}
		return pausePair(tx.State, stableSymbol)
	})
}

// Admin returns the current admin.
func (e *Engine) Admin() (asset.Address, error) {
	var (
		admin asset.Address
		err   error
	)
	e.View(func(s *domain.State) {
		if !s.Initialized {
			err = apperror.Validation(apperror.CodeNotInitialized, "engine")
			return
		}
		admin = s.Admin
	})
	return admin, err
}

// Config returns the global config.
func (e *Engine) Config() domain.Config {
	var cfg domain.Config
	e.View(func(s *domain.State) { cfg = s.Config })
	return cfg
}

// Oracles returns the configured oracle addresses.
func (e *Engine) Oracles() domain.Oracles {
	var o domain.Oracles
	e.View(func(s *domain.State) { o = s.Oracles })
	return o
}

// Pairs returns the basic view of every registered pair.
func (e *Engine) Pairs() []arbDomain.TradingPair {
	var out []arbDomain.TradingPair
	e.View(func(s *domain.State) {
		for _, p := range s.Pairs {
			out = append(out, p.Base)
		}
	})
	return out
}

// EnhancedPairs returns every registered pair.
func (e *Engine) EnhancedPairs() []arbDomain.EnhancedPair {
	var out []arbDomain.EnhancedPair
	e.View(func(s *domain.State) {
		out = s.ClonePairs()
	})
	return out
}

// Venues returns the venue registry.
func (e *Engine) Venues() []domain.Venue {
	var out []domain.Venue
	e.View(func(s *domain.State) { out = slices.Clone(s.Venues) })
	return out
}

// EnabledVenues returns the venues recommended to detected opportunities.
func (e *Engine) EnabledVenues() []domain.Venue {
	var out []domain.Venue
	e.View(func(s *domain.State) { out = s.EnabledVenues() })
	return out
}

// History returns the last limit global executions; 0 returns all.
func (e *Engine) History(limit uint32) []execDomain.Execution {
	var out []execDomain.Execution
	e.View(func(s *domain.State) { out = execDomain.Last(s.History, limit) })
	return out
}

// Metrics aggregates the global history over the last days.
func (e *Engine) Metrics(days uint32) domain.Metrics {
	var m domain.Metrics
	cutoff := domain.Cutoff(e.now(), days)
	e.View(func(s *domain.State) { m = domain.Aggregate(s.History, cutoff, days) })
	return m
}

func requireAdmin(s *domain.State, caller asset.Address) error {
	if !s.Initialized {
		return apperror.Validation(apperror.CodeNotInitialized, "engine")
	}
	if caller != s.Admin {
		return apperror.Unauthorized(apperror.CodeUnauthorized, "admin only")
	}
	return nil
}

func requireGovernance(s *domain.State, caller asset.Address) error {
	if !s.Initialized {
		return apperror.Validation(apperror.CodeNotInitialized, "engine")
	}
	if !s.IsGovernanceOrAdmin(caller) {
		return apperror.Unauthorized(apperror.CodeUnauthorized, "governance or admin only")
	}
	return nil
}

func upsertPair(s *domain.State, pair arbDomain.EnhancedPair) error {
	if pair.Base.StableSymbol == "" || pair.Base.FiatSymbol == "" {
		return apperror.Validation(apperror.CodeInvalidInput, "pair symbols are required")
	}
	for i, p := range s.Pairs {
		if p.Base.StableSymbol == pair.Base.StableSymbol && p.Base.FiatSymbol == pair.Base.FiatSymbol {
			s.Pairs[i] = pair
			return nil
		}
	}
	s.Pairs = append(s.Pairs, pair)
	return nil
}

func appendVenue(s *domain.State, venue domain.Venue) error {
	if venue.Address.IsZero() {
		return apperror.Validation(apperror.CodeInvalidInput, "venue address is required")
	}
	s.Venues = append(s.Venues, venue)
	return nil
}

func pausePair(s *domain.State, stableSymbol string) error {
	found := false
	for i := range s.Pairs {
		if s.Pairs[i].Base.StableSymbol == stableSymbol {
			s.Pairs[i].Enabled = false
			found = true
		}
	}
	if !found {
		return apperror.NotFound(apperror.CodePairNotFound, stableSymbol)
	}
	return nil
}
