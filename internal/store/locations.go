package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Location is a tenant's physical site.
type Location struct {
	ID             string
	TenantID       string
	StateCode      string
	Timezone       string
	SMSPhoneNumber string
}

// Locations is the tenant-scoped store for location rows.
type Locations struct {
	*Store
}

// NewLocations wraps a Store for location operations.
func NewLocations(s *Store) *Locations { return &Locations{Store: s} }

// GetByID loads a location scoped to tenantID.
func (l *Locations) GetByID(ctx context.Context, q Querier, tenantID, locationID string) (Location, error) {
	const query = `
		SELECT id, tenant_id, state_code, timezone, coalesce(sms_phone_number, '')
		FROM locations
		WHERE tenant_id = $1 AND id = $2
	`
	var rec Location
	if err := q.QueryRow(ctx, query, tenantID, locationID).Scan(
		&rec.ID, &rec.TenantID, &rec.StateCode, &rec.Timezone, &rec.SMSPhoneNumber,
	); err != nil {
		if err == pgx.ErrNoRows {
			return Location{}, ErrNotFound
		}
		return Location{}, fmt.Errorf("store: get location: %w", err)
	}
	return rec, nil
}

// ByPhoneNumber resolves the tenant+location that owns an assigned sending
// number, used by the inbound reconciler to route a webhook's "to" number
// back to a tenant.
func (l *Locations) ByPhoneNumber(ctx context.Context, q Querier, phone string) (Location, error) {
	const query = `
		SELECT id, tenant_id, state_code, timezone, coalesce(sms_phone_number, '')
		FROM locations
		WHERE sms_phone_number = $1
		LIMIT 1
	`
	var rec Location
	if err := q.QueryRow(ctx, query, phone).Scan(
		&rec.ID, &rec.TenantID, &rec.StateCode, &rec.Timezone, &rec.SMSPhoneNumber,
	); err != nil {
		if err == pgx.ErrNoRows {
			return Location{}, ErrNotFound
		}
		return Location{}, fmt.Errorf("store: location by phone number: %w", err)
	}
	return rec, nil
}
