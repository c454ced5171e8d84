package domain

import (
	pricingDomain "github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// Signal is the output of the TWAP strategy.
type Signal string

const (
	SignalNone             Signal = "NO_SIGNAL"
	SignalBuy              Signal = "BUY_SIGNAL"
	SignalSell             Signal = "SELL_SIGNAL"
	SignalInsufficientData Signal = "INSUFFICIENT_DATA"
)

// CrossDeviationLimitBps is the largest accepted gap between the oracle
// cross price and the ratio of the two leg prices.
const CrossDeviationLimitBps = 500

// TWAPSignal compares current against the mean of history.
func TWAPSignal(current asset.Amount, history []asset.Amount, minDeviationBps uint32) Signal {
	twap := pricingDomain.Mean(history)
	if len(history) == 0 || twap <= 0 {
		return SignalInsufficientData
	}
	dev, err := DeviationBps(current, twap)
	if err != nil {
		return SignalInsufficientData
	}
	if dev < minDeviationBps {
		return SignalNone
	}
	if current > twap {
		return SignalSell
	}
	return SignalBuy
}

// CrossPriceValid checks an oracle cross price against stable/fiat computed
// from the leg prices. A zero fiat price cannot be checked and passes.
func CrossPriceValid(cross, stable, fiat asset.Amount) bool {
	if fiat <= 0 {
		return true
	}
	expected, err := asset.MulDivAmount(stable, asset.Scale, fiat)
	if err != nil {
		return false
	}
	dev, err := DeviationBps(cross, expected)
	if err != nil {
		return false
	}
	return dev < CrossDeviationLimitBps
}

// PositionSize scales base down by volatility (bps) under a risk budget
// (bps squared, normalized by 1e8).
func PositionSize(base asset.Amount, volatilityBps, maxRiskBps uint32) asset.Amount {
	var adj uint64
	if volatilityBps < BpsScale {
		adj = uint64(BpsScale - volatilityBps)
	}
	mult := adj * uint64(maxRiskBps) / 100_000_000
	size, err := base.MulDiv(int64(mult), BpsScale)
	if err != nil {
		return 0
	}
	return size
}
