// Package arbitrage implements the arbitrage bounded context for opportunity detection.
package arbitrage

import (
	"context"

	"github.com/KPR-V/stellar/business/arbitrage/app"
	arbitrageDI "github.com/KPR-V/stellar/business/arbitrage/di"
	"github.com/KPR-V/stellar/business/arbitrage/infra"
	blockchainDI "github.com/KPR-V/stellar/business/blockchain/di"
	executionDI "github.com/KPR-V/stellar/business/execution/di"
	ledgerDI "github.com/KPR-V/stellar/business/ledger/di"
	pricingDI "github.com/KPR-V/stellar/business/pricing/di"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/config"
	"github.com/KPR-V/stellar/internal/di"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct {
	done chan struct{}
}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Reporter (private)
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		if cfg.Arbitrage.Reporter == "console" {
			return infra.NewConsoleReporter(nil)
		}
		return infra.NewLogReporter(log)
	})

	// Detector (public)
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		log := sr.Get("logger").(logger.LoggerInterface)
		gw := pricingDI.GetGateway(sr)
		return app.NewDetector(gw, ledgerDI.GetEngine(sr), gw.Now, log.With("module", "arbitrage"))
	})

	// Strategies (private)
	di.RegisterToken(c, arbitrageDI.Strategies, func(sr di.ServiceRegistry) *app.Strategies {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewStrategies(pricingDI.GetGateway(sr), ledgerDI.GetEngine(sr), log.With("module", "arbitrage"))
	})

	// Scanner (public)
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		s, err := app.NewScanner(
			app.ScannerConfig{
				Interval:     cfg.Arbitrage.ScanInterval,
				PollInterval: cfg.Ethereum.PollInterval,
				AutoExecute:  cfg.Arbitrage.AutoExecute,
				Keeper:       asset.Address(cfg.Arbitrage.Keeper),
				MaxRiskBps:   cfg.Arbitrage.MaxRiskBps,
			},
			arbitrageDI.GetDetector(sr),
			arbitrageDI.GetStrategies(sr),
			ledgerDI.GetEngine(sr),
			blockchainDI.GetSequenceService(sr),
			executionDI.GetExecutor(sr),
			arbitrageDI.GetReporter(sr),
			log.With("module", "arbitrage"),
		)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return s
	})

	return nil
}

// Startup launches the scan loop; it runs until ctx is cancelled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	scanner := arbitrageDI.GetScanner(mono.Services())

	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		scanner.Run(ctx)
	}()

	mono.Logger().Info(ctx, "arbitrage module started",
		"pairs", len(ledgerDI.GetEngine(mono.Services()).EnhancedPairs()),
	)
	return nil
}

// Close waits for the scan loop to exit.
func (m *Module) Close(ctx context.Context) error {
	if m.done == nil {
		return nil
	}
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
