package domain

import (
	"time"

	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// Metrics summarizes executions since a cutoff.
type Metrics struct {
	TotalProfit       asset.Amount
	TotalTrades       uint32
	SuccessfulTrades  uint32
	SuccessRateBps    uint32
	TotalVolume       asset.Amount
	AvgProfitPerTrade asset.Amount
	PeriodDays        uint32
}

// Cutoff returns now - days, floored at the Unix epoch.
func Cutoff(now time.Time, days uint32) time.Time {
	secs := now.Unix() - int64(days)*86400
	if secs < 0 {
		secs = 0
	}
	return time.Unix(secs, 0)
}

// Aggregate sums executions stamped at or after cutoff.
func Aggregate(history []execDomain.Execution, cutoff time.Time, days uint32) Metrics {
	m := Metrics{PeriodDays: days}
	for _, e := range history {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		m.TotalTrades++
		m.TotalVolume += e.ExecutedAmount
		m.TotalProfit += e.Profit
		if e.Status.Succeeded() {
			m.SuccessfulTrades++
		}
	}
	if m.TotalTrades > 0 {
		m.SuccessRateBps = m.SuccessfulTrades * 10000 / m.TotalTrades
		m.AvgProfitPerTrade = m.TotalProfit / asset.Amount(m.TotalTrades)
	}
	return m
}
