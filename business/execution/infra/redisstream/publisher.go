// Package redisstream publishes executions to a Redis stream.
package redisstream

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/execution/app"
	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/apperror"
)

const tracerName = "redisstream"

const latestKeyPrefix = "execution:latest:"

var _ app.Publisher = (*Publisher)(nil)

// Config configures the publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64 // approximate stream cap; 0 keeps everything
}

// Publisher XADDs each execution and keeps the latest one per pair in a hash.
type Publisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	tracer trace.Tracer
}

// New connects a publisher.
func New(cfg Config) *Publisher {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Stream, cfg.MaxLen)
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, stream string, maxLen int64) *Publisher {
	if stream == "" {
		stream = "executions"
	}
	return &Publisher{rdb: rdb, stream: stream, maxLen: maxLen, tracer: otel.Tracer(tracerName)}
}

// Ping checks connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Publish appends e to the stream and updates the pair's latest entry.
func (p *Publisher) Publish(ctx context.Context, e domain.Execution) error {
	pair := e.Opportunity.Pair.String()
	ctx, span := p.tracer.Start(ctx, "redisstream.publish",
		trace.WithAttributes(
			attribute.String("stream", p.stream),
			attribute.String("pair", pair),
			attribute.String("status", string(e.Status)),
		),
	)
	defer span.End()

	payload, err := json.Marshal(e)
	if err != nil {
		return apperror.Internal(apperror.CodeInternalError, "encode execution", err)
	}
	fields := map[string]interface{}{
		"pair":    pair,
		"mode":    string(e.Mode),
		"status":  string(e.Status),
		"amount":  e.ExecutedAmount.String(),
		"profit":  e.Profit.String(),
		"gas":     e.GasCost.String(),
		"ts_ms":   strconv.FormatInt(e.Timestamp.UnixMilli(), 10),
		"payload": string(payload),
	}

	args := &redis.XAddArgs{Stream: p.stream, Values: fields}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	pipe := p.rdb.TxPipeline()
	pipe.XAdd(ctx, args)
	pipe.HSet(ctx, latestKeyPrefix+pair, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return apperror.External(apperror.CodePublishFailed, p.stream, err)
	}
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
