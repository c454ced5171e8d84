// Package app contains the engine and account services of the ledger context.
package app

import (
	"context"

	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/ledger/domain"
)

// Store persists committed engine state.
type Store interface {
	// LoadSnapshot returns the latest snapshot; ok is false when none exists.
	LoadSnapshot(ctx context.Context) (*domain.State, bool, error)
	SaveSnapshot(ctx context.Context, s *domain.State) error
	AppendExecutions(ctx context.Context, execs []execDomain.Execution) error
}
