package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	"github.com/KPR-V/stellar/business/execution/domain"
	ledgerApp "github.com/KPR-V/stellar/business/ledger/app"
	ledgerDomain "github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/internal/apm"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

const instrumentationName = "github.com/KPR-V/stellar/business/execution/app"

// ExecutorConfig names the assets and addresses the executor trades with.
type ExecutorConfig struct {
	Settlement asset.Address // counter asset of every swap path
	Recipient  asset.Address // receives swap output
}

// Executor runs the execution state machine in pool and user modes. Each
// attempt runs inside one engine transaction, venue calls included.
type Executor struct {
	cfg        ExecutorConfig
	engine     *ledgerApp.Engine
	venue      Venue
	risk       RiskGate
	sequence   SequenceSource
	publishers []Publisher
	log        logger.LoggerInterface
	tracer     apm.Tracer

	attempts metric.Int64Counter
	profit   metric.Int64Counter
}

// NewExecutor wires an executor. sequence may be nil, in which case gas is
// priced at sequence 0.
func NewExecutor(
	cfg ExecutorConfig,
	engine *ledgerApp.Engine,
	venue Venue,
	risk RiskGate,
	sequence SequenceSource,
	log logger.LoggerInterface,
	publishers ...Publisher,
) (*Executor, error) {
	if cfg.Settlement.IsZero() {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "settlement asset is required")
	}

	meter := otel.Meter(instrumentationName)
	attempts, err := meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Execution attempts by mode and status"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}
	profit, err := meter.Int64Counter(
		"execution_profit_units_total",
		metric.WithDescription("Realized net profit in fixed-point units, successes only"),
	)
	if err != nil {
		return nil, err
	}

	return &Executor{
		cfg:        cfg,
		engine:     engine,
		venue:      venue,
		risk:       risk,
		sequence:   sequence,
		publishers: publishers,
		log:        log,
		tracer:     apm.NewTracer(instrumentationName),
		attempts:   attempts,
		profit:     profit,
	}, nil
}

// ExecutePool trades amount of protocol funds on opp. caller must be a keeper
// or the admin. The returned error is set only when the call itself is
// rejected; every attempt that runs yields an Execution with its status.
func (x *Executor) ExecutePool(
	ctx context.Context,
	caller asset.Address,
	opp arbDomain.Opportunity,
	amount asset.Amount,
) (domain.Execution, error) {
	ctx, span := x.tracer.StartSpanFromContext(ctx, "executor.pool",
		trace.WithAttributes(
			attribute.String("pair", opp.Pair.String()),
			attribute.String("direction", string(opp.Direction)),
			attribute.Int64("amount", int64(amount)),
		),
	)
	defer span.End()

	var result domain.Execution
	err := x.engine.Transact(ctx, "execute_pool", func(tx *ledgerApp.Tx) error {
		if !tx.State.IsKeeperOrAdmin(caller) {
			return apperror.Unauthorized(apperror.CodeUnauthorized, "keeper or admin only")
		}
		result = x.runPool(ctx, tx, caller, opp, amount)
		return nil
	})
	if err != nil {
		span.NoticeError(err)
		return domain.Execution{}, err
	}

	x.finish(ctx, span, result)
	return result, nil
}

func (x *Executor) runPool(
	ctx context.Context,
	tx *ledgerApp.Tx,
	caller asset.Address,
	opp arbDomain.Opportunity,
	amount asset.Amount,
) domain.Execution {
	fail := func(status domain.Status) domain.Execution {
		return domain.Failed(opp, status, domain.ModePool, caller, tx.Now)
	}

	risk, err := x.risk.CheckTradeSize(ctx, amount)
	if err != nil {
		x.log.Warn(ctx, "risk gate unavailable, rejecting trade", "pair", opp.Pair.String(), "error", err)
		return fail(domain.RiskPositionTooLarge.Status())
	}
	if !risk.Approved() {
		return fail(risk.Status())
	}

	cfg := tx.State.Config
	if !cfg.Enabled {
		return fail(domain.StatusDisabled)
	}
	if !cfg.ValidSize(amount) {
		return fail(domain.StatusInvalidSize)
	}

	path := domain.Path(opp.Direction, opp.Pair.StableAddress, x.cfg.Settlement)
	if status, ok := x.simulate(ctx, amount, path, cfg.SlippageToleranceBps); !ok {
		return fail(status)
	}

	e := x.swap(ctx, tx.Now, opp, amount, path, cfg.SlippageToleranceBps, domain.PoolComplexity)
	e.Mode = domain.ModePool
	e.Actor = caller

	if e.Status.Succeeded() {
		if err := x.risk.RecordVolume(ctx, caller, amount); err != nil {
			x.log.Warn(ctx, "risk volume not recorded", "error", err)
		}
	}
	tx.Record(e, "")
	return e
}

// ExecuteUser trades amount from user's escrow on opp. caller must be the
// user.
func (x *Executor) ExecuteUser(
	ctx context.Context,
	caller, user asset.Address,
	opp arbDomain.Opportunity,
	amount asset.Amount,
) (domain.Execution, error) {
	ctx, span := x.tracer.StartSpanFromContext(ctx, "executor.user",
		trace.WithAttributes(
			attribute.String("pair", opp.Pair.String()),
			attribute.String("user", user.Short()),
			attribute.Int64("amount", int64(amount)),
		),
	)
	defer span.End()

	var result domain.Execution
	err := x.engine.Transact(ctx, "execute_user", func(tx *ledgerApp.Tx) error {
		if err := ledgerApp.RequireOwner(caller, user); err != nil {
			return err
		}
		acct, ok := tx.State.Accounts[user]
		if !ok {
			return apperror.NotFound(apperror.CodeUserNotFound, user.Short())
		}
		history := tx.State.Histories[user]
		if history == nil {
			history = &ledgerDomain.AccountHistory{}
			tx.State.Histories[user] = history
		}
		result = x.runUser(ctx, tx, acct, history, opp, amount)
		return nil
	})
	if err != nil {
		span.NoticeError(err)
		return domain.Execution{}, err
	}

	x.finish(ctx, span, result)
	return result, nil
}

func (x *Executor) runUser(
	ctx context.Context,
	tx *ledgerApp.Tx,
	acct *ledgerDomain.Account,
	history *ledgerDomain.AccountHistory,
	opp arbDomain.Opportunity,
	amount asset.Amount,
) domain.Execution {
	fail := func(status domain.Status) domain.Execution {
		return domain.Failed(opp, status, domain.ModeUser, acct.Owner, tx.Now)
	}
	token := opp.Pair.StableAddress
	cfg := acct.Config

	switch {
	case !tx.State.Config.Enabled:
		return fail(domain.StatusDisabled)
	case !cfg.Enabled:
		return fail(domain.StatusUserBotDisabled)
	case cfg.MaxTradeSize == 0 || !cfg.ValidSize(amount):
		return fail(domain.StatusInvalidSize)
	case !acct.Active:
		return fail(domain.StatusUserInactive)
	case amount > acct.Limits.MaxPositionSize:
		return fail(domain.StatusUserPositionTooLarge)
	case acct.Balance(token) < amount:
		return fail(domain.StatusInsufficientUserBalance)
	}
	if next, err := history.VolumeOn(tx.Now).Add(amount); err != nil || next > acct.Limits.MaxDailyVolume {
		return fail(domain.StatusUserDailyLimitExceeded)
	}

	if err := acct.Debit(token, amount); err != nil {
		return fail(domain.StatusInsufficientUserBalance)
	}
	refund := func() {
		// Credit of a just-debited amount cannot overflow.
		_ = acct.Credit(token, amount)
	}

	path := domain.Path(opp.Direction, token, x.cfg.Settlement)
	if status, ok := x.simulate(ctx, amount, path, cfg.SlippageToleranceBps); !ok {
		refund()
		if status == domain.StatusSlippageTooHigh {
			return fail(domain.StatusUserSlippageTooHigh)
		}
		return fail(status)
	}

	e := x.swap(ctx, tx.Now, opp, amount, path, cfg.SlippageToleranceBps, domain.UserComplexity)
	e.Mode = domain.ModeUser
	e.Actor = acct.Owner

	if e.Status.Succeeded() {
		acct.ApplyNet(token, e.Profit)
	} else {
		refund()
	}
	tx.Record(e, acct.Owner)
	return e
}

// simulate quotes the swap and checks slippage against the input amount.
func (x *Executor) simulate(
	ctx context.Context,
	amount asset.Amount,
	path []asset.Address,
	toleranceBps uint32,
) (domain.Status, bool) {
	quoted, err := x.venue.Quote(ctx, amount, path)
	if err != nil {
		x.log.Debug(ctx, "quote failed", "error", err)
		return domain.StatusInsufficientLiquidity, false
	}
	if slip := domain.SlippageBps(amount, quoted); slip >= toleranceBps {
		x.log.Debug(ctx, "slippage above tolerance",
			"slippage_bps", slip,
			"tolerance_bps", toleranceBps,
			"quoted", quoted.String(),
		)
		return domain.StatusSlippageTooHigh, false
	}
	return domain.StatusSuccess, true
}

// swap executes and settles the trade. Failures carry no monetary effect.
func (x *Executor) swap(
	ctx context.Context,
	now time.Time,
	opp arbDomain.Opportunity,
	amount asset.Amount,
	path []asset.Address,
	toleranceBps uint32,
	complexity uint32,
) domain.Execution {
	deadline := now.Add(domain.DeadlineWindow)
	minOut := domain.MinAmountOut(amount, toleranceBps)

	amounts, err := x.venue.Swap(ctx, amount, minOut, path, x.cfg.Recipient, deadline)
	if err != nil {
		status := domain.StatusForSwapError(err)
		x.log.Warn(ctx, "swap failed", "pair", opp.Pair.String(), "status", string(status), "error", err)
		return domain.Execution{Opportunity: opp, Timestamp: now, Status: status}
	}
	if len(amounts) < 2 {
		return domain.Execution{Opportunity: opp, Timestamp: now, Status: domain.StatusSwapFailed}
	}

	out := amounts[len(amounts)-1]
	gas := domain.GasCost(complexity, x.currentSequence(ctx))
	net, err := (out - amount).Sub(gas)
	if err != nil {
		net = -asset.MaxAmount
	}

	return domain.Execution{
		Opportunity:    opp,
		ExecutedAmount: amount,
		Profit:         net,
		GasCost:        gas,
		Timestamp:      now,
		Status:         domain.StatusSuccess,
	}
}

func (x *Executor) currentSequence(ctx context.Context) uint64 {
	if x.sequence == nil {
		return 0
	}
	seq, err := x.sequence.Sequence(ctx)
	if err != nil {
		x.log.Warn(ctx, "ledger sequence unavailable, pricing gas at base rate", "error", err)
		return 0
	}
	return seq
}

func (x *Executor) finish(ctx context.Context, span apm.Span, e domain.Execution) {
	span.SetAttributes(attribute.String("status", string(e.Status)))
	x.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(e.Mode)),
		attribute.String("status", string(e.Status)),
	))

	if e.Status.Succeeded() {
		span.Ok()
		x.profit.Add(ctx, max(int64(e.Profit), 0))
		x.log.Info(ctx, "execution succeeded",
			"pair", e.Opportunity.Pair.String(),
			"mode", string(e.Mode),
			"amount", e.ExecutedAmount.String(),
			"profit", e.Profit.String(),
			"gas", e.GasCost.String(),
		)
	} else {
		x.log.Info(ctx, "execution failed",
			"pair", e.Opportunity.Pair.String(),
			"mode", string(e.Mode),
			"status", string(e.Status),
		)
	}

	for _, p := range x.publishers {
		if err := p.Publish(ctx, e); err != nil {
			x.log.Warn(ctx, "execution not published", "error", err)
		}
	}
}
