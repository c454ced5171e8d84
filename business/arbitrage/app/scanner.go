package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/KPR-V/stellar/business/arbitrage/domain"
	blockchainDomain "github.com/KPR-V/stellar/business/blockchain/domain"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

// DefaultScanInterval is used when no interval is configured.
const DefaultScanInterval = 5 * time.Second

// ScannerConfig controls the scan loop.
type ScannerConfig struct {
	Interval     time.Duration
	PollInterval time.Duration // ledger sequence polling, defaults to Interval
	AutoExecute  bool
	Keeper       asset.Address // caller used for auto-executed pool trades
	MaxRiskBps   uint32        // volatility sizing budget, 0 disables
}

// Scanner scans every registered pair on each new ledger sequence and on a
// fixed interval.
type Scanner struct {
	cfg        ScannerConfig
	detector   *Detector
	strategies *Strategies
	registry   Registry
	sequences  SequenceWatcher
	executor   PoolExecutor
	reporter   Reporter
	log        logger.LoggerInterface

	found metric.Int64Counter
}

// NewScanner wires a scanner. sequences and executor may be nil.
func NewScanner(
	cfg ScannerConfig,
	detector *Detector,
	strategies *Strategies,
	registry Registry,
	sequences SequenceWatcher,
	executor PoolExecutor,
	reporter Reporter,
	log logger.LoggerInterface,
) (*Scanner, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultScanInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = cfg.Interval
	}
	found, err := otel.Meter(instrumentationName).Int64Counter(
		"opportunities_total",
		metric.WithDescription("Detected opportunities by pair"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		cfg:        cfg,
		detector:   detector,
		strategies: strategies,
		registry:   registry,
		sequences:  sequences,
		executor:   executor,
		reporter:   reporter,
		log:        log,
		found:      found,
	}, nil
}

// Run scans until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var seqs <-chan blockchainDomain.Sequence
	if s.sequences != nil {
		seqs = s.sequences.Watch(ctx, s.cfg.PollInterval)
	}

	var last uint64
	s.log.Info(ctx, "scanner started", "interval", s.cfg.Interval, "auto_execute", s.cfg.AutoExecute)
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scanner stopping", "reason", ctx.Err())
			return
		case seq, ok := <-seqs:
			if !ok {
				seqs = nil
				continue
			}
			last = seq.Number
			s.ScanAll(ctx, last)
		case <-ticker.C:
			s.ScanAll(ctx, last)
		}
	}
}

// ScanAll runs one pass over the registered pairs and returns the detected
// opportunities.
func (s *Scanner) ScanAll(ctx context.Context, sequence uint64) []domain.EnhancedOpportunity {
	pairs := s.registry.EnhancedPairs()

	var found []domain.EnhancedOpportunity
	for _, pair := range pairs {
		opp, ok := s.detector.Scan(ctx, pair)
		if !ok {
			continue
		}
		s.strategies.Apply(ctx, pair, &opp)
		s.found.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.Base.String())))

		found = append(found, opp)
		s.reporter.Report(ctx, opp)
		s.maybeExecute(ctx, pair, opp)
	}

	s.reporter.ReportScan(ctx, sequence, len(pairs), len(found))
	return found
}

func (s *Scanner) maybeExecute(ctx context.Context, pair domain.EnhancedPair, opp domain.EnhancedOpportunity) {
	if !s.cfg.AutoExecute || s.executor == nil {
		return
	}

	cfg := s.registry.Config()
	if opp.Base.ProfitBps() < cfg.MinProfitBps {
		return
	}
	if !s.strategies.CrossValid(ctx, opp.Base) {
		s.log.Warn(ctx, "cross price check failed, skipping execution", "pair", opp.Base.Pair.String())
		return
	}

	size := opp.MaxTradeSize
	if cfg.MaxTradeSize < size {
		size = cfg.MaxTradeSize
	}
	if s.cfg.MaxRiskBps > 0 {
		size = domain.PositionSize(size, pair.Risk.VolatilityThresholdBps, s.cfg.MaxRiskBps)
		if size <= 0 {
			s.log.Debug(ctx, "position sized to zero, skipping execution", "pair", opp.Base.Pair.String())
			return
		}
	}

	e, err := s.executor.ExecutePool(ctx, s.cfg.Keeper, opp.Base, size)
	if err != nil {
		s.log.Error(ctx, "auto execution rejected", "pair", opp.Base.Pair.String(), "error", err)
		return
	}
	s.reporter.ReportExecution(ctx, e)
}
