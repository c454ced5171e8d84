// Package ledger implements the account ledger bounded context: engine state,
// administration and escrowed user accounts.
package ledger

import (
	"context"
	"strings"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	"github.com/KPR-V/stellar/business/ledger/app"
	ledgerDI "github.com/KPR-V/stellar/business/ledger/di"
	"github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/business/ledger/infra/sqlstore"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/config"
	"github.com/KPR-V/stellar/internal/di"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/monolith"
)

// Module implements the ledger bounded context.
type Module struct {
	store *sqlstore.Store
}

// RegisterServices registers all ledger services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Snapshot store (private) - nil when no driver is configured
	di.RegisterToken(c, ledgerDI.Store, func(sr di.ServiceRegistry) *sqlstore.Store {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Ledger.Driver == "" {
			return nil
		}
		store, err := sqlstore.Open(context.Background(), cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			panic("failed to open ledger store: " + err.Error())
		}
		m.store = store
		return store
	})

	// Engine (public - exposed to other modules)
	di.RegisterToken(c, ledgerDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		log := sr.Get("logger").(logger.LoggerInterface)

		var opts []app.Option
		if store := ledgerDI.GetStore(sr); store != nil {
			opts = append(opts, app.WithStore(store))
		}
		engine, err := app.NewEngine(log.With("module", "ledger"), opts...)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// Startup restores the engine state, or bootstraps it from config on first run.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	engine := ledgerDI.GetEngine(mono.Services())

	restored, err := engine.Load(ctx)
	if err != nil {
		return err
	}
	if !restored {
		if err := bootstrap(ctx, engine, cfg); err != nil {
			return err
		}
	}

	log.Info(ctx, "ledger module started",
		"restored", restored,
		"pairs", len(engine.Pairs()),
		"venues", len(engine.Venues()),
		"persistent", m.store != nil,
	)
	return nil
}

// Close releases the snapshot store.
func (m *Module) Close(ctx context.Context) error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

func bootstrap(ctx context.Context, engine *app.Engine, cfg *config.Config) error {
	admin := asset.Address(cfg.Ledger.Admin)

	err := engine.Initialize(ctx, admin, globalConfig(cfg), domain.Oracles{
		Forex:  asset.Address(cfg.Pricing.ForexOracle),
		Crypto: asset.Address(cfg.Pricing.CryptoOracle),
		Native: asset.Address(cfg.Pricing.NativeOracle),
	}, asset.Address(cfg.Ledger.RiskGate))
	if err != nil {
		return err
	}

	if cfg.Ledger.Governance != "" {
		if err := engine.SetGovernance(ctx, admin, asset.Address(cfg.Ledger.Governance)); err != nil {
			return err
		}
	}
	if cfg.Arbitrage.Keeper != "" {
		if err := engine.AddKeeper(ctx, admin, asset.Address(cfg.Arbitrage.Keeper)); err != nil {
			return err
		}
	}

	for _, p := range cfg.Arbitrage.Pairs {
		if err := addPair(ctx, engine, admin, p); err != nil {
			return err
		}
	}

	if cfg.Execution.VenueAddress != "" {
		venue := domain.Venue{
			Name:               cfg.Execution.VenueName,
			Address:            asset.Address(cfg.Execution.VenueAddress),
			Enabled:            true,
			FeeBps:             cfg.Execution.VenueFeeBps,
			LiquidityThreshold: config.MustAmount(cfg.Ledger.MinLiquidity),
		}
		if err := engine.AddVenue(ctx, admin, venue); err != nil {
			return err
		}
	}
	return nil
}

func globalConfig(cfg *config.Config) domain.Config {
	return domain.Config{
		MinProfitBps:         cfg.Ledger.MinProfitBps,
		MaxTradeSize:         config.MustAmount(cfg.Ledger.MaxTradeSize),
		SlippageToleranceBps: cfg.Ledger.SlippageToleranceBps,
		Enabled:              true,
		MaxGasPrice:          int64(cfg.Ledger.MaxGasPrice),
		MinLiquidity:         config.MustAmount(cfg.Ledger.MinLiquidity),
	}
}

func addPair(ctx context.Context, engine *app.Engine, admin asset.Address, p config.PairConfig) error {
	if strings.EqualFold(p.Kind, "crypto") {
		return engine.AddCryptoPair(ctx, admin,
			strings.ToUpper(p.Base), strings.ToUpper(p.Quote),
			asset.Address(p.Contract), p.ThresholdBps)
	}
	return engine.AddPair(ctx, admin, arbDomain.TradingPair{
		FiatSymbol:    strings.ToUpper(p.Fiat),
		StableSymbol:  strings.ToUpper(p.Stable),
		StableAddress: asset.Address(p.Contract),
		TargetPeg:     p.TargetPeg,
		ThresholdBps:  p.ThresholdBps,
	})
}
