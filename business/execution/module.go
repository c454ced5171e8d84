// Package execution implements the trade execution bounded context.
package execution

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	blockchainDI "github.com/KPR-V/stellar/business/blockchain/di"
	"github.com/KPR-V/stellar/business/execution/app"
	executionDI "github.com/KPR-V/stellar/business/execution/di"
	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/execution/infra/amm"
	"github.com/KPR-V/stellar/business/execution/infra/redisstream"
	"github.com/KPR-V/stellar/business/execution/infra/router"
	"github.com/KPR-V/stellar/business/execution/infra/telegram"
	ledgerDI "github.com/KPR-V/stellar/business/ledger/di"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/config"
	"github.com/KPR-V/stellar/internal/di"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct {
	redis *redisstream.Publisher
}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Venue (private)
	di.RegisterToken(c, executionDI.Venue, func(sr di.ServiceRegistry) app.Venue {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Execution.Venue == "router" {
			client := sr.Get("ethClient").(*ethclient.Client)
			if client == nil {
				panic("router venue requires an ethereum client")
			}
			return newRouter(client, cfg, log)
		}
		return newPool(cfg)
	})

	// Publishers (private) - redis stream and telegram, each optional
	di.RegisterToken(c, executionDI.Publishers, func(sr di.ServiceRegistry) []app.Publisher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var pubs []app.Publisher
		if cfg.Redis.Enabled {
			m.redis = redisstream.New(redisstream.Config{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				Stream:   cfg.Redis.Stream,
				MaxLen:   cfg.Redis.MaxLen,
			})
			pubs = append(pubs, m.redis)
		}
		if cfg.Telegram.Enabled {
			alerter, err := telegram.New(telegram.Config{
				Token:       cfg.Telegram.Token,
				ChatID:      cfg.Telegram.ChatID,
				APIEndpoint: cfg.Telegram.APIEndpoint,
				MinProfit:   config.MustAmount(cfg.Telegram.MinProfit),
			}, log)
			if err != nil {
				panic("failed to create telegram alerter: " + err.Error())
			}
			pubs = append(pubs, alerter)
		}
		return pubs
	})

	// RiskManager (public - the scanner reads its limits)
	di.RegisterToken(c, executionDI.RiskManager, func(sr di.ServiceRegistry) *app.RiskManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewRiskManager(domain.RiskLimits{
			MaxDailyVolume:  config.MustAmount(cfg.Risk.MaxDailyVolume),
			MaxPositionSize: config.MustAmount(cfg.Risk.MaxPositionSize),
			MaxDrawdownBps:  cfg.Risk.MaxDrawdownBps,
			VaRLimit:        config.MustAmount(cfg.Risk.VaRLimit),
		}, log.With("component", "risk"))
	})

	// Executor (public - exposed to other modules)
	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		x, err := app.NewExecutor(
			app.ExecutorConfig{
				Settlement: asset.Address(cfg.Execution.Settlement),
				Recipient:  asset.Address(cfg.Execution.Recipient),
			},
			ledgerDI.GetEngine(sr),
			executionDI.GetVenue(sr),
			executionDI.GetRiskManager(sr),
			blockchainDI.GetSequenceService(sr),
			log.With("module", "execution"),
			executionDI.GetPublishers(sr)...,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return x
	})

	return nil
}

func newRouter(client *ethclient.Client, cfg *config.Config, log logger.LoggerInterface) *router.Venue {
	tokens := make(map[string]common.Address, len(cfg.Execution.Tokens))
	for code := range cfg.Execution.Tokens {
		addr, _ := cfg.Execution.TokenAddress(code)
		tokens[strings.ToUpper(code)] = addr
	}

	var from common.Address
	if common.IsHexAddress(cfg.Execution.Recipient) {
		from = common.HexToAddress(cfg.Execution.Recipient)
	}

	v, err := router.New(client, router.Config{
		Router: common.HexToAddress(cfg.Execution.RouterContract),
		Tokens: tokens,
		From:   from,
	}, log)
	if err != nil {
		panic("failed to create router venue: " + err.Error())
	}
	return v
}

// newPool seeds one pool per configured pair, each trading the pair's
// contract against the settlement asset.
func newPool(cfg *config.Config) *amm.Venue {
	fee := cfg.Execution.VenueFeeBps
	if fee == 0 {
		fee = amm.DefaultFeeBps
	}
	v := amm.New(fee)

	tracked := config.MustAmount(cfg.Execution.AMM.ReserveTracked)
	settlement := config.MustAmount(cfg.Execution.AMM.ReserveSettlement)
	for _, p := range cfg.Arbitrage.Pairs {
		if p.Contract == "" {
			continue
		}
		v.AddPool(asset.Address(p.Contract), asset.Address(cfg.Execution.Settlement), tracked, settlement)
	}
	return v
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := mono.Services()

	// Resolve eagerly so wiring errors surface at startup
	_ = executionDI.GetExecutor(svc)

	if m.redis != nil {
		if err := m.redis.Ping(ctx); err != nil {
			log.Warn(ctx, "redis unavailable, executions will not be streamed until it recovers", "error", err)
		}
	}

	log.Info(ctx, "execution module started",
		"venue", mono.Config().Execution.Venue,
		"publishers", len(executionDI.GetPublishers(svc)),
	)
	return nil
}

// Close releases the redis client.
func (m *Module) Close(context.Context) error {
	if m.redis != nil {
		return m.redis.Close()
	}
	return nil
}
