// Package app contains the trade executor and the in-process risk gate.
package app

import (
	"context"
	"time"

	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// Venue is a swap venue. Failures should be *domain.SwapError so they map to
// a specific status; anything else becomes SWAP_FAILED.
type Venue interface {
	// Quote simulates a swap without changing state.
	Quote(ctx context.Context, amountIn asset.Amount, path []asset.Address) (asset.Amount, error)
	// Swap executes and returns the amounts along path; the last is received.
	Swap(
		ctx context.Context,
		amountIn, minOut asset.Amount,
		path []asset.Address,
		recipient asset.Address,
		deadline time.Time,
	) ([]asset.Amount, error)
}

// RiskGate approves pool trade sizes.
type RiskGate interface {
	CheckTradeSize(ctx context.Context, amount asset.Amount) (domain.RiskStatus, error)
	// RecordVolume is called after successful pool trades only.
	RecordVolume(ctx context.Context, actor asset.Address, amount asset.Amount) error
}

// Publisher is notified of every execution attempt once it has committed.
type Publisher interface {
	Publish(ctx context.Context, e domain.Execution) error
}

// SequenceSource yields the current ledger sequence.
type SequenceSource interface {
	Sequence(ctx context.Context) (uint64, error)
}
