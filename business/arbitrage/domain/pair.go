// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	pricingDomain "github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// PegScale is the denominator of TradingPair.TargetPeg (10000 = 1:1).
const PegScale = 10000

// TradingPair compares a tracked asset against a reference price. For
// stablecoin pairs the reference is a fiat rate; for crypto pairs it is
// another crypto asset.
type TradingPair struct {
	FiatSymbol    string        // reference leg, e.g. EUR
	StableSymbol  string        // tracked leg, e.g. EURC
	StableAddress asset.Address // token traded on the venue
	TargetPeg     uint32
	ThresholdBps  uint32
}

func (p TradingPair) String() string {
	return p.StableSymbol + "/" + p.FiatSymbol
}

// RiskConfig bounds the size of trades taken on a pair.
type RiskConfig struct {
	MaxPositionSize        asset.Amount
	MaxDailyVolume         asset.Amount
	VolatilityThresholdBps uint32
	CorrelationLimit       int64
}

// FeeConfig lists per-trade cost components in basis points.
type FeeConfig struct {
	TradingBps uint32
	GasBps     uint32
	BridgeBps  uint32
	KeeperBps  uint32
}

// TotalBps is the fee total charged against gross profit. Keeper fees are
// paid out of realized profit and are not part of the estimate.
func (f FeeConfig) TotalBps() uint32 {
	return f.TradingBps + f.GasBps + f.BridgeBps
}

// TWAPConfig controls the time-weighted average signal.
type TWAPConfig struct {
	Periods         uint32
	MinDeviationBps uint32
	Enabled         bool
}

// EnhancedPair is a trading pair with its price sources and risk and fee
// settings.
type EnhancedPair struct {
	Base            TradingPair
	FiatSources     []pricingDomain.Source
	StableSources   []pricingDomain.Source
	FallbackEnabled bool
	MinSources      uint32
	Risk            RiskConfig
	Fees            FeeConfig
	TWAP            TWAPConfig
	Enabled         bool
}

// FromBasic enriches a plain pair with the default sources and limits.
func FromBasic(p TradingPair) EnhancedPair {
	return EnhancedPair{
		Base: p,
		FiatSources: []pricingDomain.Source{{
			Category: pricingDomain.CategoryForex,
			Mode:     pricingDomain.BySymbol,
			Priority: 1,
			MaxAge:   600 * time.Second,
		}},
		StableSources: []pricingDomain.Source{{
			Category: pricingDomain.CategoryCrypto,
			Mode:     pricingDomain.BySymbol,
			Priority: 1,
			MaxAge:   300 * time.Second,
		}},
		FallbackEnabled: true,
		MinSources:      1,
		Risk: RiskConfig{
			MaxPositionSize:        100000_0000000,
			MaxDailyVolume:         1000000_0000000,
			VolatilityThresholdBps: 1000,
			CorrelationLimit:       8000,
		},
		Fees:    FeeConfig{TradingBps: 30, GasBps: 10, BridgeBps: 0, KeeperBps: 5},
		TWAP:    TWAPConfig{Periods: 12, MinDeviationBps: 100, Enabled: true},
		Enabled: true,
	}
}

// CryptoPair builds a crypto-to-crypto pair priced entirely by the crypto
// oracle. base is the reference leg and quote the traded one.
func CryptoPair(base, quote string, quoteAddress asset.Address, thresholdBps uint32) EnhancedPair {
	src := pricingDomain.Source{
		Category: pricingDomain.CategoryCrypto,
		Mode:     pricingDomain.BySymbol,
		Address:  pricingDomain.CryptoOracle,
		Priority: 1,
		MaxAge:   3600 * time.Second,
	}
	return EnhancedPair{
		Base: TradingPair{
			FiatSymbol:    base,
			StableSymbol:  quote,
			StableAddress: quoteAddress,
			TargetPeg:     PegScale,
			ThresholdBps:  thresholdBps,
		},
		FiatSources:     []pricingDomain.Source{src},
		StableSources:   []pricingDomain.Source{src},
		FallbackEnabled: true,
		MinSources:      1,
		Risk: RiskConfig{
			MaxPositionSize:        50000000000,
			MaxDailyVolume:         100000000000,
			VolatilityThresholdBps: 10000,
			CorrelationLimit:       50000000000,
		},
		Fees:    FeeConfig{TradingBps: 30, GasBps: 10},
		TWAP:    TWAPConfig{Periods: 1, MinDeviationBps: 50},
		Enabled: true,
	}
}
