// Package ethereum implements the SequenceSource port over a go-ethereum RPC
// client, using the latest block number as the ledger sequence.
package ethereum

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/blockchain/app"
	"github.com/KPR-V/stellar/business/blockchain/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/cache"
	"github.com/KPR-V/stellar/internal/circuitbreaker"
	"github.com/KPR-V/stellar/internal/logger"
)

const (
	tracerName = "github.com/KPR-V/stellar/business/blockchain/infra/ethereum"
	meterName  = "github.com/KPR-V/stellar/business/blockchain/infra/ethereum"

	latestKey       = "latest"
	defaultCacheTTL = 2 * time.Second
)

var _ app.SequenceSource = (*Source)(nil)

// BlockNumberReader is the subset of ethclient.Client the source needs.
type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config holds configuration for the sequence source.
type Config struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

type sourceMetrics struct {
	fetches     metric.Int64Counter
	fetchErrors metric.Int64Counter
	cacheHits   metric.Int64Counter
	sequence    metric.Int64Gauge
}

// Source reads the ledger sequence from an Ethereum-compatible node.
type Source struct {
	client BlockNumberReader
	config Config
	logger logger.LoggerInterface

	cache *cache.Cache[string, domain.Sequence]
	cb    *circuitbreaker.CircuitBreaker[uint64]

	tracer  trace.Tracer
	metrics *sourceMetrics
}

// New creates a sequence source reading from client.
func New(client BlockNumberReader, cfg Config, log logger.LoggerInterface) (*Source, error) {
	if client == nil {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "ethereum client is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Source{
		client: client,
		config: cfg,
		logger: log,
		cache:  cache.New[string, domain.Sequence](time.Minute),
		cb:     circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("sequence-source")),
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *Source) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &sourceMetrics{}

	s.metrics.fetches, err = meter.Int64Counter(
		"sequence_fetches_total",
		metric.WithDescription("Total ledger sequence fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	s.metrics.fetchErrors, err = meter.Int64Counter(
		"sequence_fetch_errors_total",
		metric.WithDescription("Failed ledger sequence fetches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheHits, err = meter.Int64Counter(
		"sequence_cache_hits_total",
		metric.WithDescription("Ledger sequence cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	s.metrics.sequence, err = meter.Int64Gauge(
		"ledger_sequence",
		metric.WithDescription("Latest observed ledger sequence"),
	)
	return err
}

// Latest returns the latest block number, served from cache within CacheTTL.
func (s *Source) Latest(ctx context.Context) (domain.Sequence, error) {
	ctx, span := s.tracer.Start(ctx, "sequence.latest")
	defer span.End()

	if seq, ok := s.cache.Get(ctx, latestKey); ok {
		s.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return seq, nil
	}

	s.metrics.fetches.Add(ctx, 1)

	number, err := s.cb.Execute(func() (uint64, error) {
		return s.client.BlockNumber(ctx)
	})
	if err != nil {
		s.metrics.fetchErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if circuitbreaker.IsOpen(err) {
			return domain.Sequence{}, apperror.External(apperror.CodeCircuitOpen, "sequence source circuit open", err)
		}
		return domain.Sequence{}, apperror.External(apperror.CodeRPCError, "failed to get block number", err)
	}

	seq := domain.Sequence{Number: number, ObservedAt: s.config.Now()}
	s.cache.Set(ctx, latestKey, seq, s.config.CacheTTL)
	s.metrics.sequence.Record(ctx, int64(number))

	span.SetAttributes(attribute.Int64("sequence", int64(number)))
	span.SetStatus(codes.Ok, "fetched")
	return seq, nil
}

// Close stops the cache janitor. The RPC client is owned by the caller.
func (s *Source) Close() {
	s.cache.Close()
}
