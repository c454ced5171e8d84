// Package blockchain implements the ledger sequence bounded context.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/KPR-V/stellar/business/blockchain/app"
	blockchainDI "github.com/KPR-V/stellar/business/blockchain/di"
	"github.com/KPR-V/stellar/business/blockchain/infra/ethereum"
	"github.com/KPR-V/stellar/business/blockchain/infra/local"
	"github.com/KPR-V/stellar/internal/config"
	"github.com/KPR-V/stellar/internal/di"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct {
	rpc *ethereum.Source
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// SequenceSource (private) - RPC backed when a client is configured
	di.RegisterToken(c, blockchainDI.SequenceSource, func(sr di.ServiceRegistry) app.SequenceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		if client == nil {
			return local.New(0, cfg.Ethereum.PollInterval, nil)
		}
		src, err := ethereum.New(client, ethereum.Config{CacheTTL: cfg.Ethereum.PollInterval / 2}, log)
		if err != nil {
			panic("failed to create sequence source: " + err.Error())
		}
		m.rpc = src
		return src
	})

	// SequenceService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.SequenceService, func(sr di.ServiceRegistry) *app.SequenceService {
		log := sr.Get("logger").(logger.LoggerInterface)
		src := blockchainDI.GetSequenceSource(sr)
		_, offline := src.(*local.Counter)
		return app.NewSequenceService(src, offline, log.With("module", "blockchain"))
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := blockchainDI.GetSequenceService(mono.Services())

	// Don't fail - the scanner keeps polling
	seq, err := svc.Sequence(ctx)
	if err != nil {
		log.Error(ctx, "failed to read ledger sequence", "error", err)
	}

	log.Info(ctx, "blockchain module started",
		"sequence", seq,
		"offline", svc.Status().Offline,
	)
	return nil
}

// Close stops the RPC source cache.
func (m *Module) Close(context.Context) error {
	if m.rpc != nil {
		m.rpc.Close()
	}
	return nil
}
