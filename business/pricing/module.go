// Package pricing implements the price oracle gateway bounded context.
package pricing

import (
	"context"
	"time"

	"github.com/KPR-V/stellar/business/pricing/app"
	pricingDI "github.com/KPR-V/stellar/business/pricing/di"
	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/business/pricing/infra/binance"
	"github.com/KPR-V/stellar/business/pricing/infra/memory"
	"github.com/KPR-V/stellar/business/pricing/infra/reflector"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/config"
	"github.com/KPR-V/stellar/internal/di"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct {
	reflectors []*reflector.Client
	stream     *binance.Provider
}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Crypto stream (Binance) - nil when disabled
	di.RegisterToken(c, pricingDI.CryptoStream, func(sr di.ServiceRegistry) *binance.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		if !cfg.Pricing.Binance.Enabled {
			return nil
		}

		provider, err := binance.NewProvider(binance.ProviderConfig{
			WebSocketURL:   cfg.Pricing.Binance.WebSocketURL,
			HTTPURL:        cfg.Pricing.Binance.HTTPURL,
			Symbols:        cfg.Pricing.Binance.Symbols,
			Window:         cfg.Pricing.Binance.Window,
			StaleTimeout:   cfg.Pricing.Binance.StaleTimeout,
			EnableFallback: cfg.Pricing.Binance.EnableFallback,
		}, log)
		if err != nil {
			panic("failed to create binance provider: " + err.Error())
		}
		return provider
	})

	// Oracle directory (public)
	di.RegisterToken(c, pricingDI.Directory, func(sr di.ServiceRegistry) *app.Directory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		dir := app.NewDirectory()

		for _, ep := range cfg.Pricing.Endpoints {
			client, err := reflector.New(reflector.Config{
				Address:      asset.Address(ep.Address),
				BaseURL:      ep.URL,
				RateLimitRPM: cfg.Pricing.RateLimitRPM,
				CacheTTL:     cfg.Pricing.CacheTTL,
				Timeout:      cfg.Pricing.RequestTimeout,
			}, log)
			if err != nil {
				panic("failed to create oracle client: " + err.Error())
			}
			m.reflectors = append(m.reflectors, client)
			dir.Register(client.Address(), client)
		}

		if stream := pricingDI.GetCryptoStream(sr); stream != nil {
			for _, addr := range cryptoAddresses(cfg) {
				if _, bound := dir.Lookup(addr); !bound {
					dir.Register(addr, stream)
				}
			}
		}

		for _, addr := range []asset.Address{
			asset.Address(cfg.Pricing.ForexOracle),
			asset.Address(cfg.Pricing.CryptoOracle),
			asset.Address(cfg.Pricing.NativeOracle),
		} {
			if _, bound := dir.Lookup(addr); bound {
				continue
			}
			if !cfg.App.Simulation() {
				log.Warn(context.Background(), "oracle address has no client", "oracle", addr.String())
				continue
			}
			dir.Register(addr, memory.New())
		}
		return dir
	})

	// Gateway (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.Gateway, func(sr di.ServiceRegistry) *app.Gateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gw, err := app.NewGateway(pricingDI.GetDirectory(sr), cfg.Pricing.MaxAge, log)
		if err != nil {
			panic("failed to create price gateway: " + err.Error())
		}
		return gw
	})

	return nil
}

// cryptoAddresses returns the addresses the crypto stream serves: the
// configured crypto oracle and the well-known address crypto sources route to.
func cryptoAddresses(cfg *config.Config) []asset.Address {
	configured := asset.Address(cfg.Pricing.CryptoOracle)
	if configured == domain.CryptoOracle {
		return []asset.Address{configured}
	}
	return []asset.Address{configured, domain.CryptoOracle}
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	dir := pricingDI.GetDirectory(mono.Services())

	// Connect Binance stream (don't fail if connection fails - will retry)
	if stream := pricingDI.GetCryptoStream(mono.Services()); stream != nil {
		m.stream = stream
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := stream.Connect(connectCtx); err != nil {
			log.Warn(ctx, "binance connection failed, will retry in background", "error", err)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
						if err := stream.Connect(ctx); err != nil {
							log.Warn(ctx, "binance retry failed", "error", err)
						} else {
							log.Info(ctx, "binance connected successfully")
							return
						}
					}
				}
			}()
		}
	}

	log.Info(ctx, "pricing module started", "oracles", len(dir.Addresses()))
	return nil
}

// Close releases oracle clients.
func (m *Module) Close(ctx context.Context) error {
	for _, r := range m.reflectors {
		r.Close()
	}
	if m.stream != nil {
		return m.stream.Close()
	}
	return nil
}
