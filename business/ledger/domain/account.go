package domain

import (
	"time"

	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
)

// Account is a user's escrow profile.
type Account struct {
	Owner      asset.Address
	Balances   map[asset.Address]asset.Amount
	Limits     execDomain.RiskLimits
	Config     Config
	ProfitLoss asset.Amount
	Active     bool
}

// NewAccount creates an active account with no balances.
func NewAccount(owner asset.Address, limits execDomain.RiskLimits, cfg Config) *Account {
	return &Account{
		Owner:    owner,
		Balances: make(map[asset.Address]asset.Amount),
		Limits:   limits,
		Config:   cfg,
		Active:   true,
	}
}

// Balance returns the escrowed amount of token.
func (a *Account) Balance(token asset.Address) asset.Amount {
	return a.Balances[token]
}

// Credit adds amount to the escrow of token.
func (a *Account) Credit(token asset.Address, amount asset.Amount) error {
	next, err := a.Balances[token].Add(amount)
	if err != nil {
		return apperror.Validation(apperror.CodeBalanceOverflow, "credit "+token.Short())
	}
	a.Balances[token] = next
	return nil
}

// Debit removes amount from the escrow of token.
func (a *Account) Debit(token asset.Address, amount asset.Amount) error {
	bal := a.Balances[token]
	if bal < amount {
		return apperror.Validation(apperror.CodeInsufficientBalance, "debit "+token.Short())
	}
	a.Balances[token] = bal - amount
	return nil
}

// ApplyNet credits a realized result, flooring the balance at zero. P&L
// moves by the change actually applied to the balance, which is returned.
func (a *Account) ApplyNet(token asset.Address, net asset.Amount) asset.Amount {
	prev := a.Balances[token]
	next, err := prev.Add(net)
	switch {
	case err != nil && net > 0:
		next = asset.MaxAmount
	case err != nil || next < 0:
		next = 0
	}
	a.Balances[token] = next
	applied := next - prev
	if pl, err := a.ProfitLoss.Add(applied); err == nil {
		a.ProfitLoss = pl
	}
	return applied
}

// Clone returns a copy with its own balance map.
func (a *Account) Clone() *Account {
	c := *a
	c.Balances = make(map[asset.Address]asset.Amount, len(a.Balances))
	for k, v := range a.Balances {
		c.Balances[k] = v
	}
	return &c
}

// AccountHistory tracks a user's executions and daily volume. Volume rolls
// over at UTC midnight.
type AccountHistory struct {
	Executions   []execDomain.Execution
	DailyVolume  asset.Amount
	VolumeDay    time.Time
	SuccessCount uint32
	LastTrade    time.Time
}

// VolumeOn returns the volume counted for the UTC day containing now.
func (h *AccountHistory) VolumeOn(now time.Time) asset.Amount {
	if !sameDay(h.VolumeDay, now) {
		return 0
	}
	return h.DailyVolume
}

// Record appends e and updates the counters.
func (h *AccountHistory) Record(e execDomain.Execution) {
	h.Executions = execDomain.AppendBounded(h.Executions, e)

	if !sameDay(h.VolumeDay, e.Timestamp) {
		h.DailyVolume = 0
		h.VolumeDay = dayOf(e.Timestamp)
	}
	if v, err := h.DailyVolume.Add(e.ExecutedAmount); err == nil {
		h.DailyVolume = v
	}
	if e.Status.Succeeded() {
		h.SuccessCount++
	}
	h.LastTrade = e.Timestamp
}

func (h *AccountHistory) clone() *AccountHistory {
	c := *h
	c.Executions = append([]execDomain.Execution(nil), h.Executions...)
	return &c
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return !a.IsZero() && dayOf(a).Equal(dayOf(b))
}
