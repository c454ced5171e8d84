package app

import (
	"context"

	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
)

// Register creates an empty, active account for user.
func (e *Engine) Register(
	ctx context.Context,
	caller, user asset.Address,
	limits execDomain.RiskLimits,
	cfg domain.Config,
) error {
	return e.Transact(ctx, "register", func(tx *Tx) error {
		if err := RequireOwner(caller, user); err != nil {
			return err
		}
		if _, ok := tx.State.Accounts[user]; ok {
			return apperror.Conflict(apperror.CodeUserAlreadyRegistered, user.Short())
		}
		tx.State.Accounts[user] = domain.NewAccount(user, limits, cfg)
		tx.State.Histories[user] = &domain.AccountHistory{}
		return nil
	})
}

// Deposit adds amount of token to the user's escrow.
func (e *Engine) Deposit(ctx context.Context, caller, user, token asset.Address, amount asset.Amount) error {
	err := e.Transact(ctx, "deposit", func(tx *Tx) error {
		acct, err := ownedAccount(tx.State, caller, user)
		if err != nil {
			return err
		}
		if amount <= 0 {
			return apperror.Validation(apperror.CodeInvalidAmount, amount.String())
		}
		return acct.Credit(token, amount)
	})
	if err == nil {
		e.log.Info(ctx, "deposit", "user", user.Short(), "token", token.Short(), "amount", amount.String())
	}
	return err
}

// Withdraw removes amount of token from the user's escrow.
func (e *Engine) Withdraw(ctx context.Context, caller, user, token asset.Address, amount asset.Amount) error {
	err := e.Transact(ctx, "withdraw", func(tx *Tx) error {
		acct, err := ownedAccount(tx.State, caller, user)
		if err != nil {
			return err
		}
		if amount <= 0 {
			return apperror.Validation(apperror.CodeInvalidAmount, amount.String())
		}
		return acct.Debit(token, amount)
	})
	if err == nil {
		e.log.Info(ctx, "withdraw", "user", user.Short(), "token", token.Short(), "amount", amount.String())
	}
	return err
}

// UpdateUserConfig overwrites the user's trading config.
func (e *Engine) UpdateUserConfig(ctx context.Context, caller, user asset.Address, cfg domain.Config) error {
	return e.Transact(ctx, "update_user_config", func(tx *Tx) error {
		acct, err := ownedAccount(tx.State, caller, user)
		if err != nil {
			return err
		}
		acct.Config = cfg
		return nil
	})
}

// Balances returns the user's escrow; empty when unknown.
func (e *Engine) Balances(user asset.Address) map[asset.Address]asset.Amount {
	out := make(map[asset.Address]asset.Amount)
	e.View(func(s *domain.State) {
		if acct, ok := s.Accounts[user]; ok {
			for k, v := range acct.Balances {
				out[k] = v
			}
		}
	})
	return out
}

// UserConfig returns the user's trading config, or the default when unknown.
func (e *Engine) UserConfig(user asset.Address) domain.Config {
	cfg := domain.DefaultUserConfig()
	e.View(func(s *domain.State) {
		if acct, ok := s.Accounts[user]; ok {
			cfg = acct.Config
		}
	})
	return cfg
}

// Account returns a copy of the user's account.
func (e *Engine) Account(user asset.Address) (domain.Account, bool) {
	var (
		acct domain.Account
		ok   bool
	)
	e.View(func(s *domain.State) {
		var a *domain.Account
		if a, ok = s.Accounts[user]; ok {
			acct = *a.Clone()
		}
	})
	return acct, ok
}

// UserHistory returns the user's last limit executions; 0 returns all.
func (e *Engine) UserHistory(user asset.Address, limit uint32) []execDomain.Execution {
	var out []execDomain.Execution
	e.View(func(s *domain.State) {
		if h, ok := s.Histories[user]; ok {
			out = execDomain.Last(h.Executions, limit)
		}
	})
	return out
}

// UserMetrics aggregates the user's history over the last days.
func (e *Engine) UserMetrics(user asset.Address, days uint32) domain.Metrics {
	m := domain.Metrics{PeriodDays: days}
	cutoff := domain.Cutoff(e.now(), days)
	e.View(func(s *domain.State) {
		if h, ok := s.Histories[user]; ok {
			m = domain.Aggregate(h.Executions, cutoff, days)
		}
	})
	return m
}

// RequireOwner rejects any caller other than the account owner.
func RequireOwner(caller, user asset.Address) error {
	if user.IsZero() || caller != user {
		return apperror.Unauthorized(apperror.CodeUnauthorized, "account owner only")
	}
	return nil
}

func ownedAccount(s *domain.State, caller, user asset.Address) (*domain.Account, error) {
	if err := RequireOwner(caller, user); err != nil {
		return nil, err
	}
	acct, ok := s.Accounts[user]
	if !ok {
		return nil, apperror.NotFound(apperror.CodeUserNotFound, user.Short())
	}
	return acct, nil
}
