// Package local provides an offline ledger sequence that advances with the
// wall clock.
package local

import (
	"context"
	"time"

	"github.com/KPR-V/stellar/business/blockchain/app"
	"github.com/KPR-V/stellar/business/blockchain/domain"
)

// DefaultCloseTime is the ledger close interval the counter emulates.
const DefaultCloseTime = 5 * time.Second

var _ app.SequenceSource = (*Counter)(nil)

// Counter derives a monotonic sequence from the time elapsed since creation.
type Counter struct {
	start   uint64
	every   time.Duration
	now     func() time.Time
	startAt time.Time
}

// New creates a counter starting at start and advancing once per every.
// A nil now uses time.Now.
func New(start uint64, every time.Duration, now func() time.Time) *Counter {
	if every <= 0 {
		every = DefaultCloseTime
	}
	if now == nil {
		now = time.Now
	}
	return &Counter{
		start:   start,
		every:   every,
		now:     now,
		startAt: now(),
	}
}

// Latest returns the current sequence.
func (c *Counter) Latest(_ context.Context) (domain.Sequence, error) {
	t := c.now()
	elapsed := t.Sub(c.startAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return domain.Sequence{
		Number:     c.start + uint64(elapsed/c.every),
		ObservedAt: t,
	}, nil
}
