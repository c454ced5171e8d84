package app

import (
	"context"
	"sync"
	"time"

	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

var _ RiskGate = (*RiskManager)(nil)

// RiskManager is an in-process RiskGate. Daily volume is pooled across
// actors and rolls over at UTC midnight.
type RiskManager struct {
	mu      sync.Mutex
	limits  domain.RiskLimits
	day     time.Time
	volume  asset.Amount
	byActor map[asset.Address]asset.Amount
	now     func() time.Time
	log     logger.LoggerInterface
}

// NewRiskManager creates a gate enforcing limits.
func NewRiskManager(limits domain.RiskLimits, log logger.LoggerInterface) *RiskManager {
	return &RiskManager{
		limits:  limits,
		byActor: make(map[asset.Address]asset.Amount),
		now:     time.Now,
		log:     log,
	}
}

// CheckTradeSize approves amount against the position and daily caps.
func (r *RiskManager) CheckTradeSize(ctx context.Context, amount asset.Amount) (domain.RiskStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover()

	if amount > r.limits.MaxPositionSize {
		return domain.RiskPositionTooLarge, nil
	}
	next, err := r.volume.Add(amount)
	if err != nil || next > r.limits.MaxDailyVolume {
		return domain.RiskDailyLimitExceeded, nil
	}
	return domain.RiskApproved, nil
}

// RecordVolume adds amount to today's volume.
func (r *RiskManager) RecordVolume(ctx context.Context, actor asset.Address, amount asset.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover()

	if v, err := r.volume.Add(amount); err == nil {
		r.volume = v
	} else {
		r.volume = asset.MaxAmount
	}
	if v, err := r.byActor[actor].Add(amount); err == nil {
		r.byActor[actor] = v
	}

	r.log.Debug(ctx, "risk volume recorded", "actor", actor.Short(), "amount", amount.String(), "daily", r.volume.String())
	return nil
}

// Limits returns the configured limits.
func (r *RiskManager) Limits() domain.RiskLimits {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limits
}

// DailyVolume returns today's pooled volume and the share of actor.
func (r *RiskManager) DailyVolume(actor asset.Address) (total, own asset.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollover()
	return r.volume, r.byActor[actor]
}

func (r *RiskManager) rollover() {
	y, m, d := r.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if today.Equal(r.day) {
		return
	}
	r.day = today
	r.volume = 0
	clear(r.byActor)
}
