package app

import (
	"context"

	"github.com/KPR-V/stellar/business/arbitrage/domain"
	pricingDomain "github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

// Strategies enriches opportunities with oracle history checks.
type Strategies struct {
	prices   PriceGateway
	registry Registry
	log      logger.LoggerInterface
}

// NewStrategies creates the strategy set.
func NewStrategies(prices PriceGateway, registry Registry, log logger.LoggerInterface) *Strategies {
	return &Strategies{prices: prices, registry: registry, log: log}
}

// TWAP reports the oracle's time-weighted average for the first stable
// source and signals on the tracked price against the last
// pair.TWAP.Periods records. Pairs with TWAP disabled get NO_SIGNAL and a
// zero average.
func (s *Strategies) TWAP(ctx context.Context, pair domain.EnhancedPair, current asset.Amount) (asset.Amount, domain.Signal) {
	if !pair.TWAP.Enabled || len(pair.StableSources) == 0 {
		return 0, domain.SignalNone
	}

	oracles := s.registry.Oracles()
	addr := s.prices.Route(pair.StableSources[0], oracles.Crypto, oracles.Native)
	oracle, ok := s.prices.Oracle(addr)
	if !ok {
		return 0, domain.SignalInsufficientData
	}

	ref := asset.Symbol(pair.Base.StableSymbol)
	history, ok, err := oracle.Prices(ctx, ref, pair.TWAP.Periods)
	if err != nil {
		s.log.Warn(ctx, "twap history unavailable", "pair", pair.Base.String(), "error", err)
		return 0, domain.SignalInsufficientData
	}
	if !ok {
		return 0, domain.SignalInsufficientData
	}

	twap, ok, err := oracle.TWAP(ctx, ref, pair.TWAP.Periods)
	switch {
	case err != nil:
		s.log.Warn(ctx, "oracle twap unavailable, averaging history", "pair", pair.Base.String(), "error", err)
		twap = pricingDomain.Mean(history)
	case !ok:
		twap = pricingDomain.Mean(history)
	}
	return twap, domain.TWAPSignal(current, history, pair.TWAP.MinDeviationBps)
}

// CrossValid checks opp against the forex oracle's cross price of the two
// legs. Missing cross data passes.
func (s *Strategies) CrossValid(ctx context.Context, opp domain.Opportunity) bool {
	oracle, ok := s.prices.Oracle(s.registry.Oracles().Forex)
	if !ok {
		return true
	}
	cross, ok, err := oracle.CrossPrice(ctx, asset.Symbol(opp.Pair.StableSymbol), asset.Symbol(opp.Pair.FiatSymbol))
	if err != nil {
		s.log.Warn(ctx, "cross price unavailable", "pair", opp.Pair.String(), "error", err)
		return true
	}
	if !ok {
		return true
	}
	return domain.CrossPriceValid(cross.Price, opp.StablePrice, opp.FiatPrice)
}

// Apply fills the TWAP fields of opp.
func (s *Strategies) Apply(ctx context.Context, pair domain.EnhancedPair, opp *domain.EnhancedOpportunity) {
	opp.TWAPPrice, opp.Signal = s.TWAP(ctx, pair, opp.Base.StablePrice)
}
