package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/apm"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

const instrumentationName = "github.com/KPR-V/stellar/business/pricing/app"

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithClock overrides the wall clock used for freshness checks.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// Gateway resolves prices from an ordered list of oracle sources with
// category routing, crypto symbol variants and a freshness ceiling.
type Gateway struct {
	dir    *Directory
	maxAge time.Duration
	now    func() time.Time
	log    logger.LoggerInterface
	tracer apm.Tracer

	fetches metric.Int64Counter
}

// NewGateway creates a gateway over dir. A non-positive maxAge uses
// domain.DefaultMaxAge.
func NewGateway(dir *Directory, maxAge time.Duration, log logger.LoggerInterface, opts ...GatewayOption) (*Gateway, error) {
	if maxAge <= 0 {
		maxAge = domain.DefaultMaxAge
	}

	fetches, err := otel.Meter(instrumentationName).Int64Counter(
		"price_fetches_total",
		metric.WithDescription("Gateway price resolutions by outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		dir:     dir,
		maxAge:  maxAge,
		now:     time.Now,
		log:     log,
		tracer:  apm.NewTracer(instrumentationName),
		fetches: fetches,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Now returns the gateway clock.
func (g *Gateway) Now() time.Time {
	return g.now()
}

// Oracle returns the client registered at addr.
func (g *Gateway) Oracle(addr asset.Address) (PriceOracle, bool) {
	return g.dir.Lookup(addr)
}

// Fetch returns the first fresh quote for symbol across sources. Forex
// sources route to primary and native-ledger sources to fallback unless they
// carry an explicit address. Oracle errors count as missing data.
func (g *Gateway) Fetch(
	ctx context.Context, sources []domain.Source, symbol string, primary, fallback asset.Address,
) (domain.Quote, bool) {
	ctx, span := g.tracer.StartSpanFromContext(ctx, "pricing.fetch",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.Int("sources", len(sources)),
		),
	)
	defer span.End()

	g.log.Debug(ctx, "price fetch start", "symbol", symbol, "sources", len(sources))
	now := g.now()

	for i, src := range sources {
		addr := g.Route(src, primary, fallback)
		span.AddEvent("trying_oracle", trace.WithAttributes(
			attribute.Int("index", i),
			attribute.String("oracle", addr.String()),
			attribute.String("category", src.Category.String()),
		))
		g.log.Debug(ctx, "trying oracle", "index", i, "oracle", addr.Short(), "category", src.Category.String())

		oracle, ok := g.dir.Lookup(addr)
		if !ok {
			span.AddEvent("source_unresolved", trace.WithAttributes(attribute.String("oracle", addr.String())))
			g.log.Warn(ctx, "oracle not registered", "oracle", addr.String())
			continue
		}

		if src.Category == domain.CategoryCrypto {
			if q, ok := g.tryVariants(ctx, span, oracle, symbol, now); ok {
				g.accept(ctx, span, q)
				return q, true
			}
			continue
		}

		var ref asset.Ref
		switch src.Mode {
		case domain.ByAddress:
			if !src.HasAddress() {
				span.AddEvent("source_invalid")
				g.log.Warn(ctx, "address mode source without address", "index", i)
				continue
			}
			ref = asset.Contract(src.Address)
		default:
			ref = asset.Symbol(symbol)
		}

		q, ok := g.query(ctx, span, oracle, ref)
		if !ok {
			continue
		}
		if !q.Fresh(now, g.maxAge) {
			g.reject(ctx, span, ref, q, now)
			continue
		}
		g.accept(ctx, span, q)
		return q, true
	}

	span.AddEvent("price_fetch_exhausted")
	g.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "none")))
	g.log.Debug(ctx, "no fresh price", "symbol", symbol)
	return domain.Quote{}, false
}

// Route resolves the oracle a source is queried against. An explicit address
// wins over category routing.
func (g *Gateway) Route(src domain.Source, primary, fallback asset.Address) asset.Address {
	if src.HasAddress() {
		return src.Address
	}
	switch src.Category {
	case domain.CategoryForex:
		return primary
	case domain.CategoryCrypto:
		return domain.CryptoOracle
	default:
		return fallback
	}
}

// tryVariants queries each symbol variant; a stale hit moves on to the next
// variant.
func (g *Gateway) tryVariants(
	ctx context.Context, span apm.Span, oracle PriceOracle, symbol string, now time.Time,
) (domain.Quote, bool) {
	for _, v := range domain.SymbolVariants(symbol) {
		ref := asset.Symbol(v)
		span.AddEvent("trying_asset_format", trace.WithAttributes(attribute.String("asset", ref.String())))

		q, ok := g.query(ctx, span, oracle, ref)
		if !ok {
			continue
		}
		if q.Fresh(now, g.maxAge) {
			return q, true
		}
		g.reject(ctx, span, ref, q, now)
	}
	return domain.Quote{}, false
}

func (g *Gateway) query(ctx context.Context, span apm.Span, oracle PriceOracle, ref asset.Ref) (domain.Quote, bool) {
	q, ok, err := oracle.LastPrice(ctx, ref)
	if err != nil {
		span.AddEvent("oracle_error", trace.WithAttributes(
			attribute.String("asset", ref.String()),
			attribute.String("error", err.Error()),
		))
		g.log.Warn(ctx, "oracle query failed", "asset", ref.String(), "error", err)
		return domain.Quote{}, false
	}
	if !ok {
		span.AddEvent("oracle_null", trace.WithAttributes(attribute.String("asset", ref.String())))
		return domain.Quote{}, false
	}
	span.AddEvent("oracle_response", trace.WithAttributes(
		attribute.String("asset", ref.String()),
		attribute.Int64("price", int64(q.Price)),
		attribute.Int64("timestamp", q.Timestamp.Unix()),
	))
	return q, true
}

func (g *Gateway) accept(ctx context.Context, span apm.Span, q domain.Quote) {
	span.AddEvent("price_accepted", trace.WithAttributes(attribute.Int64("price", int64(q.Price))))
	span.Ok()
	g.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "accepted")))
	g.log.Debug(ctx, "price accepted", "price", q.Price.String())
}

func (g *Gateway) reject(ctx context.Context, span apm.Span, ref asset.Ref, q domain.Quote, now time.Time) {
	age := q.Age(now)
	span.AddEvent("price_rejected_stale", trace.WithAttributes(
		attribute.String("asset", ref.String()),
		attribute.Int64("age_seconds", int64(age/time.Second)),
	))
	g.log.Debug(ctx, "stale price rejected", "asset", ref.String(), "age", age)
}
