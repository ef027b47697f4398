package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GlobalOptOuts is the cross-tenant table of phone numbers that have opted
// out of SMS anywhere on the platform. Unlike every other store in this
// package it is never scoped by tenant_id — it intentionally leaks across
// tenant boundaries because a consumer who texted STOP to one tenant must
// not receive marketing from any other tenant either.
type GlobalOptOuts struct {
	*Store
}

// NewGlobalOptOuts wraps a Store for global opt-out operations.
func NewGlobalOptOuts(s *Store) *GlobalOptOuts { return &GlobalOptOuts{Store: s} }

// Insert records a phone number as globally opted out, ignoring the insert
// if it is already present (first-recorder wins on source_tenant_id).
func (g *GlobalOptOuts) Insert(ctx context.Context, q Querier, phone, sourceTenantID string) error {
	const query = `
		INSERT INTO global_opt_outs (phone, source_tenant_id)
		VALUES ($1, $2)
		ON CONFLICT (phone) DO NOTHING
	`
	if _, err := q.Exec(ctx, query, phone, sourceTenantID); err != nil {
		return fmt.Errorf("store: insert global opt-out: %w", err)
	}
	return nil
}

// Delete removes a phone number from the global opt-out table on opt-in.
func (g *GlobalOptOuts) Delete(ctx context.Context, q Querier, phone string) error {
	const query = `DELETE FROM global_opt_outs WHERE phone = $1`
	if _, err := q.Exec(ctx, query, phone); err != nil {
		return fmt.Errorf("store: delete global opt-out: %w", err)
	}
	return nil
}

// IsGloballyOptedOut reports whether a phone number is present in the table.
func (g *GlobalOptOuts) IsGloballyOptedOut(ctx context.Context, phone string) (bool, error) {
	const query = `SELECT 1 FROM global_opt_outs WHERE phone = $1`
	var exists int
	if err := g.Pool().QueryRow(ctx, query, phone).Scan(&exists); err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("store: check global opt-out: %w", err)
	}
	return true, nil
}
