package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/internal/apm"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

const instrumentationName = "github.com/KPR-V/stellar/business/ledger/app"

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists every commit to s.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Tx is a staged copy of the engine state. Writes become visible only when
// the transaction function returns nil.
type Tx struct {
	State *domain.State
	Now   time.Time

	recorded []execDomain.Execution
}

// Record appends e to the global history and, when user is set, to the
// user's history.
func (tx *Tx) Record(e execDomain.Execution, user asset.Address) {
	tx.State.History = execDomain.AppendBounded(tx.State.History, e)
	if !user.IsZero() {
		h, ok := tx.State.Histories[user]
		if !ok {
			h = &domain.AccountHistory{}
			tx.State.Histories[user] = h
		}
		h.Record(e)
	}
	tx.recorded = append(tx.recorded, e)
}

// Engine owns the engine state. Every mutation runs inside Transact, which
// holds the write lock for its whole duration.
type Engine struct {
	mu    sync.RWMutex
	state *domain.State
	store Store
	now   func() time.Time

	log     logger.LoggerInterface
	tracer  apm.Tracer
	commits metric.Int64Counter
}

// NewEngine creates an engine with an empty, uninitialized state.
func NewEngine(log logger.LoggerInterface, opts ...Option) (*Engine, error) {
	commits, err := otel.Meter(instrumentationName).Int64Counter(
		"ledger_transactions_total",
		metric.WithDescription("Engine transactions by operation and outcome"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		state:   domain.NewState(),
		now:     time.Now,
		log:     log,
		tracer:  apm.NewTracer(instrumentationName),
		commits: commits,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Load replaces the in-memory state with the stored snapshot, if any.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	if e.store == nil {
		return false, nil
	}
	s, ok, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return false, apperror.Internal(apperror.CodeStoreFailed, "load snapshot", err)
	}
	if !ok {
		return false, nil
	}
	if s.Accounts == nil {
		s.Accounts = make(map[asset.Address]*domain.Account)
	}
	if s.Histories == nil {
		s.Histories = make(map[asset.Address]*domain.AccountHistory)
	}

	e.mu.Lock()
	e.state = s
	e.mu.Unlock()

	e.log.Info(ctx, "engine state restored", "pairs", len(s.Pairs), "accounts", len(s.Accounts), "history", len(s.History))
	return true, nil
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Transact runs fn against a copy of the state and commits the copy when fn
// returns nil. With a store configured the commit is persisted first; a
// persistence failure discards the commit.
func (e *Engine) Transact(ctx context.Context, op string, fn func(tx *Tx) error) error {
	ctx, span := e.tracer.StartSpanFromContext(ctx, "ledger.transact",
		trace.WithAttributes(attribute.String("op", op)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Tx{State: e.state.Clone(), Now: e.now()}
	if err := fn(tx); err != nil {
		span.NoticeError(err)
		e.count(ctx, op, "rejected")
		return err
	}

	if e.store != nil {
		if len(tx.recorded) > 0 {
			if err := e.store.AppendExecutions(ctx, tx.recorded); err != nil {
				return e.storeFailed(ctx, span, op, err)
			}
		}
		if err := e.store.SaveSnapshot(ctx, tx.State); err != nil {
			return e.storeFailed(ctx, span, op, err)
		}
	}

	e.state = tx.State
	span.Ok()
	e.count(ctx, op, "committed")
	return nil
}

func (e *Engine) storeFailed(ctx context.Context, span apm.Span, op string, err error) error {
	span.NoticeError(err)
	e.count(ctx, op, "store_failed")
	e.log.Error(ctx, "engine commit not persisted", "op", op, "error", err)
	return apperror.Internal(apperror.CodeStoreFailed, op, err)
}

func (e *Engine) count(ctx context.Context, op, outcome string) {
	e.commits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// View runs fn with read access to the committed state. fn must not retain
// or mutate it.
func (e *Engine) View(fn func(s *domain.State)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.state)
}

// Snapshot returns a deep copy of the committed state.
func (e *Engine) Snapshot() *domain.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}
