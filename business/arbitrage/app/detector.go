package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/arbitrage/domain"
	"github.com/KPR-V/stellar/internal/apm"
	"github.com/KPR-V/stellar/internal/logger"
)

const instrumentationName = "github.com/KPR-V/stellar/business/arbitrage/app"

// Detector turns oracle prices into peg-deviation opportunities.
type Detector struct {
	prices   PriceGateway
	registry Registry
	now      func() time.Time
	log      logger.LoggerInterface
	tracer   apm.Tracer
}

// NewDetector creates a Detector. A nil now uses time.Now.
func NewDetector(prices PriceGateway, registry Registry, now func() time.Time, log logger.LoggerInterface) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{
		prices:   prices,
		registry: registry,
		now:      now,
		log:      log,
		tracer:   apm.NewTracer(instrumentationName),
	}
}

// Scan prices both legs of pair and reports an opportunity when the tracked
// leg deviates from its peg by at least the pair threshold.
func (d *Detector) Scan(ctx context.Context, pair domain.EnhancedPair) (domain.EnhancedOpportunity, bool) {
	ctx, span := d.tracer.StartSpanFromContext(ctx, "detector.scan",
		trace.WithAttributes(attribute.String("pair", pair.Base.String())),
	)
	defer span.End()

	if !pair.Enabled {
		span.AddEvent("pair_disabled")
		return domain.EnhancedOpportunity{}, false
	}

	oracles := d.registry.Oracles()
	fiat, ok := d.prices.Fetch(ctx, pair.FiatSources, pair.Base.FiatSymbol, oracles.Forex, oracles.Native)
	if !ok {
		span.AddEvent("reference_price_missing")
		d.log.Debug(ctx, "no reference price", "pair", pair.Base.String())
		return domain.EnhancedOpportunity{}, false
	}
	stable, ok := d.prices.Fetch(ctx, pair.StableSources, pair.Base.StableSymbol, oracles.Crypto, oracles.Native)
	if !ok {
		span.AddEvent("tracked_price_missing")
		d.log.Debug(ctx, "no tracked price", "pair", pair.Base.String())
		return domain.EnhancedOpportunity{}, false
	}

	expected, err := domain.ExpectedPrice(fiat.Price, pair.Base.TargetPeg)
	if err != nil {
		span.NoticeError(err)
		return domain.EnhancedOpportunity{}, false
	}
	deviation, err := domain.DeviationBps(stable.Price, expected)
	if err != nil {
		if !errors.Is(err, domain.ErrDivisionUndefined) {
			span.NoticeError(err)
		}
		span.AddEvent("deviation_undefined")
		return domain.EnhancedOpportunity{}, false
	}

	span.SetAttributes(
		attribute.Int64("stable_price", int64(stable.Price)),
		attribute.Int64("expected_price", int64(expected)),
		attribute.Int64("deviation_bps", int64(deviation)),
	)
	if deviation < pair.Base.ThresholdBps {
		return domain.EnhancedOpportunity{}, false
	}

	opp := domain.EnhancedOpportunity{
		Base: domain.Opportunity{
			Pair:            pair.Base,
			StablePrice:     stable.Price,
			FiatPrice:       fiat.Price,
			DeviationBps:    deviation,
			EstimatedProfit: domain.EstimatedProfit(stable.Price, expected, pair.Fees),
			Direction:       domain.DirectionFor(stable.Price, expected),
			DetectedAt:      d.now(),
		},
		Signal:       domain.SignalNone,
		Confidence:   domain.ConfidenceScore(deviation, pair.Risk),
		MaxTradeSize: pair.Risk.MaxPositionSize,
		Venues:       d.registry.EnabledVenues(),
	}

	span.AddEvent("opportunity_detected")
	d.log.Info(ctx, "opportunity detected",
		"pair", pair.Base.String(),
		"deviation_bps", deviation,
		"direction", string(opp.Base.Direction),
		"estimated_profit", opp.Base.EstimatedProfit.String(),
		"confidence", opp.Confidence,
	)
	return opp, true
}
