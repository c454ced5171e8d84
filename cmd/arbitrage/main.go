// Package main is the entry point for the price-deviation arbitrage engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KPR-V/stellar/business/arbitrage"
	"github.com/KPR-V/stellar/business/blockchain"
	blockchainDI "github.com/KPR-V/stellar/business/blockchain/di"
	blockchainDomain "github.com/KPR-V/stellar/business/blockchain/domain"
	"github.com/KPR-V/stellar/business/execution"
	"github.com/KPR-V/stellar/business/ledger"
	ledgerDI "github.com/KPR-V/stellar/business/ledger/di"
	"github.com/KPR-V/stellar/business/pricing"
	"github.com/KPR-V/stellar/internal/apm"
	"github.com/KPR-V/stellar/internal/config"
	"github.com/KPR-V/stellar/internal/health"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/metrics"
	"github.com/KPR-V/stellar/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	defer log.Sync()
	log.Info(ctx, "starting arbitrage engine",
		"version", version,
		"environment", cfg.App.Environment,
		"mode", cfg.App.Mode,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		traceProvider = apm.NewTraceProvider(log,
			apm.WithServiceName(cfg.Telemetry.ServiceName),
			apm.WithProvider(apm.Provider(cfg.Telemetry.TraceProvider), cfg.Telemetry.OTLPEndpoint, log),
		)
		log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		); err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(ctx, log, metrics.WithPort(strconv.Itoa(port)))
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Create monolith (application container)
	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - provides the ledger sequence
		&pricing.Module{},    // Oracle gateway
		&ledger.Module{},     // Engine state; bootstraps from pricing oracles
		&execution.Module{},  // Depends on ledger, blockchain
		&arbitrage.Module{},  // Depends on all of the above
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mono.Close(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "shutdown incomplete", "error", err)
		}
	}()

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	healthServer := newHealthServer(cfg, mono, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(context.Background())

	log.Info(ctx, "all modules started")
	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

func newHealthServer(cfg *config.Config, mono monolith.Monolith, log logger.LoggerInterface) *health.Server {
	port := cfg.Health.Port
	if port == 0 {
		port = 8081
	}
	srv := health.NewServer(port, version, log)

	engine := ledgerDI.GetEngine(mono.Services())
	srv.RegisterCheck("ledger", func(context.Context) (bool, string) {
		if _, err := engine.Admin(); err != nil {
			return false, err.Error()
		}
		if !engine.Config().Enabled {
			return false, "trading disabled"
		}
		return true, ""
	})

	sequence := blockchainDI.GetSequenceService(mono.Services())
	srv.RegisterCheck("sequence", func(context.Context) (bool, string) {
		st := sequence.Status()
		if st.State != blockchainDomain.StateConnected {
			return false, string(st.State)
		}
		return true, fmt.Sprintf("#%d", st.LastNumber)
	})

	return srv
}
