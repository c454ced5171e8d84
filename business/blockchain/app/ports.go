// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/KPR-V/stellar/business/blockchain/domain"
)

// SequenceSource yields the latest ledger sequence.
type SequenceSource interface {
	Latest(ctx context.Context) (domain.Sequence, error)
}
