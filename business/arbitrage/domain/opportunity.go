package domain

import (
	"time"

	"github.com/KPR-V/stellar/internal/asset"
)

// Direction is the side taken on the tracked asset.
type Direction string

const (
	// DirectionBuy means the tracked asset trades below its peg.
	DirectionBuy Direction = "BUY"

	// DirectionSell means the tracked asset trades above its peg.
	DirectionSell Direction = "SELL"
)

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "BUY (tracked below peg)"
	case DirectionSell:
		return "SELL (tracked above peg)"
	default:
		return "Unknown"
	}
}

// Venue is a swap venue registered with the engine.
type Venue struct {
	Name               string
	Address            asset.Address
	Enabled            bool
	FeeBps             uint32
	LiquidityThreshold asset.Amount
}

// Opportunity is a detected deviation. It is stale the moment it is created
// and must be re-validated at execution.
type Opportunity struct {
	Pair            TradingPair
	StablePrice     asset.Amount
	FiatPrice       asset.Amount
	DeviationBps    uint32
	EstimatedProfit asset.Amount
	Direction       Direction
	DetectedAt      time.Time
}

// EnhancedOpportunity adds scoring and sizing to an Opportunity.
type EnhancedOpportunity struct {
	Base         Opportunity
	TWAPPrice    asset.Amount // zero when no TWAP was computed
	Signal       Signal
	Confidence   uint32
	MaxTradeSize asset.Amount
	Venues       []Venue
}

// ProfitBps is the estimated profit relative to the tracked price.
func (o Opportunity) ProfitBps() uint32 {
	if o.StablePrice <= 0 || o.EstimatedProfit <= 0 {
		return 0
	}
	bps, err := o.EstimatedProfit.MulDiv(BpsScale, int64(o.StablePrice))
	if err != nil || bps > asset.Amount(maxBps) {
		return maxBps
	}
	return uint32(bps)
}
