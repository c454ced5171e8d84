package domain

import (
	"time"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// HistoryLimit caps the global and per-user execution histories.
const HistoryLimit = 100

// Mode selects whose funds an execution trades.
type Mode string

const (
	ModePool Mode = "pool"
	ModeUser Mode = "user"
)

// Execution is the immutable record of one attempt.
type Execution struct {
	Opportunity    arbDomain.Opportunity
	ExecutedAmount asset.Amount
	Profit         asset.Amount // net of gas; may be negative
	GasCost        asset.Amount
	Timestamp      time.Time
	Status         Status
	Mode           Mode
	Actor          asset.Address
}

// Failed builds a zero-effect execution.
func Failed(opp arbDomain.Opportunity, status Status, mode Mode, actor asset.Address, at time.Time) Execution {
	return Execution{
		Opportunity: opp,
		Timestamp:   at,
		Status:      status,
		Mode:        mode,
		Actor:       actor,
	}
}

// AppendBounded appends e, evicting from the front beyond HistoryLimit.
func AppendBounded(history []Execution, e Execution) []Execution {
	history = append(history, e)
	if over := len(history) - HistoryLimit; over > 0 {
		history = append(history[:0:0], history[over:]...)
	}
	return history
}

// Last returns the most recent limit entries in order; limit 0 returns all.
func Last(history []Execution, limit uint32) []Execution {
	start := 0
	if limit > 0 && int(limit) < len(history) {
		start = len(history) - int(limit)
	}
	return append([]Execution(nil), history[start:]...)
}
