// Package sqlstore persists engine snapshots and executions with database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/ledger/app"
	"github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/internal/apperror"
)

const tracerName = "github.com/KPR-V/stellar/business/ledger/infra/sqlstore"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var _ app.Store = (*Store)(nil)

// Store keeps the latest JSON snapshot of the engine state and an
// append-only executions table.
type Store struct {
	db     *sql.DB
	driver string
	tracer trace.Tracer
}

// Open connects to dsn with driver and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "unsupported ledger driver "+driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver, tracer: otel.Tracer(tracerName)}
	if driver == DriverSQLite {
		// A single connection keeps the pragmas and serializes writers.
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA synchronous=NORMAL;",
			"PRAGMA busy_timeout=5000;",
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
			}
		}
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id ` + id + `,
			pair TEXT NOT NULL,
			mode TEXT NOT NULL,
			actor TEXT NOT NULL,
			status TEXT NOT NULL,
			executed_amount BIGINT NOT NULL,
			profit BIGINT NOT NULL,
			gas_cost BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_ts ON executions (ts)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// LoadSnapshot returns the stored state, if any.
func (s *Store) LoadSnapshot(ctx context.Context) (*domain.State, bool, error) {
	ctx, span := s.tracer.Start(ctx, "sqlstore.load_snapshot")
	defer span.End()

	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT state FROM snapshots WHERE id = ?"), 1).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	state := domain.NewState()
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return state, true, nil
}

// SaveSnapshot replaces the stored state.
func (s *Store) SaveSnapshot(ctx context.Context, state *domain.State) error {
	ctx, span := s.tracer.Start(ctx, "sqlstore.save_snapshot")
	defer span.End()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		"INSERT INTO snapshots (id, state, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at"),
		1, string(raw), time.Now().UnixMilli(),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// AppendExecutions inserts execs in one transaction.
func (s *Store) AppendExecutions(ctx context.Context, execs []execDomain.Execution) error {
	ctx, span := s.tracer.Start(ctx, "sqlstore.append_executions",
		trace.WithAttributes(attribute.Int("count", len(execs))),
	)
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO executions (pair, mode, actor, status, executed_amount, profit, gas_cost, ts, payload) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range execs {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode execution: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			e.Opportunity.Pair.String(), string(e.Mode), string(e.Actor), string(e.Status),
			int64(e.ExecutedAmount), int64(e.Profit), int64(e.GasCost), e.Timestamp.UnixMilli(),
			string(payload),
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert execution: %w", err)
		}
	}
	return tx.Commit()
}

// Executions returns stored executions with timestamp >= since, oldest first.
func (s *Store) Executions(ctx context.Context, since time.Time) ([]execDomain.Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT payload FROM executions WHERE ts >= ? ORDER BY id ASC"),
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var out []execDomain.Execution
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		var e execDomain.Execution
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to decode execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
