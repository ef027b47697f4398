// Package store persists tenants, contacts, locations, campaigns, and
// messages in Postgres via pgx. Row-level security on every tenant-scoped
// table keys off the app.current_tenant session variable, set inside
// InTenantTx; callers also pass tenant_id explicitly on every query so a
// missing or wrong session variable fails closed rather than silently
// scoping to the wrong tenant.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by a single query or statement. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so store methods accept either.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool-level handle a Store is constructed with.
type PgxPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the shared handle embedded by the per-entity stores in this
// package (Contacts, Locations, Campaigns, Messages, OptOutLog, GlobalOptOuts).
type Store struct {
	pool PgxPool
}

// New builds a Store over a pool.
func New(pool PgxPool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool-level querier for read paths that don't
// need tenant scoping (global opt-out lookups, webhook idempotency checks).
func (s *Store) Pool() PgxPool {
	return s.pool
}

// InTenantTx runs fn inside a transaction with app.current_tenant set to
// tenantID for the duration of the transaction. RLS policies key off this
// session variable; fn must also pass tenantID explicitly to every query it
// issues, since set_config alone is not trusted as the sole scoping
// mechanism under a pooled connection that could be reused across tenants
// if a future code path forgets to reset it.
func (s *Store) InTenantTx(ctx context.Context, tenantID string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if tenantID == "" {
		return fmt.Errorf("store: InTenantTx: empty tenant id")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_tenant', $1, true)", tenantID); err != nil {
		return fmt.Errorf("store: set tenant session var: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// NewPool builds a pgxpool.Pool from a database URL with the configured
// connection bounds. Callers in cmd/server and cmd/worker use this directly;
// tests construct a Store over pgxmock instead.
func NewPool(ctx context.Context, databaseURL string, minConns, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse pool config: %w", err)
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: new pool: %w", err)
	}
	return pool, nil
}
