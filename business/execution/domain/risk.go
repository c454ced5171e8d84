package domain

import "github.com/KPR-V/stellar/internal/asset"

// RiskLimits bounds trading for the pool and for each account.
type RiskLimits struct {
	MaxDailyVolume  asset.Amount
	MaxPositionSize asset.Amount
	MaxDrawdownBps  uint32
	VaRLimit        asset.Amount
}
