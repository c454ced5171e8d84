package domain

import (
	"errors"
	"math"

	"github.com/KPR-V/stellar/internal/asset"
)

// BpsScale is 100% in basis points.
const BpsScale = 10000

const maxBps = math.MaxUint32

// ErrDivisionUndefined is returned for a deviation against a zero target.
var ErrDivisionUndefined = errors.New("deviation against zero target")

// ExpectedPrice applies the target peg to the reference price.
func ExpectedPrice(fiat asset.Amount, targetPeg uint32) (asset.Amount, error) {
	return fiat.MulDiv(int64(targetPeg), PegScale)
}

// DeviationBps returns |current-target|*10000/target, saturating at
// MaxUint32.
func DeviationBps(current, target asset.Amount) (uint32, error) {
	if target <= 0 {
		return 0, ErrDivisionUndefined
	}
	diff := priceDiff(current, target)
	bps, err := diff.MulDiv(BpsScale, int64(target))
	if err != nil || bps > asset.Amount(maxBps) {
		return maxBps, nil
	}
	return uint32(bps), nil
}

// EstimatedProfit is the per-unit price gap net of fees.
func EstimatedProfit(stable, expected asset.Amount, fees FeeConfig) asset.Amount {
	gross := priceDiff(stable, expected)
	fee, err := gross.MulDiv(int64(fees.TotalBps()), BpsScale)
	if err != nil {
		return 0
	}
	return gross - fee
}

// ConfidenceScore combines deviation size with the pair's position limit,
// capped at 10000.
func ConfidenceScore(deviationBps uint32, risk RiskConfig) uint32 {
	deviationScore := uint64(deviationBps) * 100
	if deviationScore > 5000 {
		deviationScore = 5000
	}
	riskAdjustment := uint64(500)
	if risk.MaxPositionSize > 100000_0000000 {
		riskAdjustment = 1000
	}
	score := deviationScore + 3000 + riskAdjustment
	if score > BpsScale {
		return BpsScale
	}
	return uint32(score)
}

// DirectionFor returns Sell when the tracked price is above the expected one.
func DirectionFor(stable, expected asset.Amount) Direction {
	if stable > expected {
		return DirectionSell
	}
	return DirectionBuy
}

func priceDiff(a, b asset.Amount) asset.Amount {
	if a > b {
		return a - b
	}
	return b - a
}
