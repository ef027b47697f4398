package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ConsentMethod records how a contact's SMS consent was captured.
type ConsentMethod string

const (
	ConsentMethodImport       ConsentMethod = "import"
	ConsentMethodKeywordReply ConsentMethod = "keyword_reply"
	ConsentMethodManual       ConsentMethod = "manual"
	ConsentMethodWebForm      ConsentMethod = "web_form"
)

// Contact is the tenant-scoped recipient row.
type Contact struct {
	ID                string
	TenantID          string
	Phone             string
	PrimaryLocationID string
	SMSConsent        bool
	SMSConsentAt      *time.Time
	SMSConsentMethod  ConsentMethod
	EmailConsent      bool
	SMSOptedOut       bool
	SMSOptedOutAt     *time.Time
	AgeVerified       bool
	DateOfBirth       *time.Time
	Tags              []string
	ExplicitTimezone  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Contacts is the tenant-scoped store for contact rows.
type Contacts struct {
	*Store
}

// NewContacts wraps a Store for contact operations.
func NewContacts(s *Store) *Contacts { return &Contacts{Store: s} }

// GetByID loads a contact scoped to tenantID. Callers typically invoke this
// inside InTenantTx; q may also be the pool directly for read-only paths
// where RLS is enforced by a read policy rather than a transaction-local
// session variable.
func (c *Contacts) GetByID(ctx context.Context, q Querier, tenantID, contactID string) (Contact, error) {
	const query = `
		SELECT id, tenant_id, phone, primary_location_id, sms_consent, sms_consent_at,
			sms_consent_method, email_consent, sms_opted_out, sms_opted_out_at,
			age_verified, date_of_birth, tags, explicit_timezone, created_at, updated_at
		FROM contacts
		WHERE tenant_id = $1 AND id = $2
	`
	var rec Contact
	var method *string
	err := q.QueryRow(ctx, query, tenantID, contactID).Scan(
		&rec.ID, &rec.TenantID, &rec.Phone, &rec.PrimaryLocationID, &rec.SMSConsent, &rec.SMSConsentAt,
		&method, &rec.EmailConsent, &rec.SMSOptedOut, &rec.SMSOptedOutAt,
		&rec.AgeVerified, &rec.DateOfBirth, &rec.Tags, &rec.ExplicitTimezone, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("store: get contact: %w", err)
	}
	if method != nil {
		rec.SMSConsentMethod = ConsentMethod(*method)
	}
	return rec, nil
}

// ByPhone looks up a contact by its normalized phone number within a tenant.
func (c *Contacts) ByPhone(ctx context.Context, q Querier, tenantID, phone string) (Contact, error) {
	const query = `
		SELECT id, tenant_id, phone, primary_location_id, sms_consent, sms_consent_at,
			sms_consent_method, email_consent, sms_opted_out, sms_opted_out_at,
			age_verified, date_of_birth, tags, explicit_timezone, created_at, updated_at
		FROM contacts
		WHERE tenant_id = $1 AND phone = $2
	`
	var rec Contact
	var method *string
	err := q.QueryRow(ctx, query, tenantID, phone).Scan(
		&rec.ID, &rec.TenantID, &rec.Phone, &rec.PrimaryLocationID, &rec.SMSConsent, &rec.SMSConsentAt,
		&method, &rec.EmailConsent, &rec.SMSOptedOut, &rec.SMSOptedOutAt,
		&rec.AgeVerified, &rec.DateOfBirth, &rec.Tags, &rec.ExplicitTimezone, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Contact{}, ErrNotFound
		}
		return Contact{}, fmt.Errorf("store: contact by phone: %w", err)
	}
	if method != nil {
		rec.SMSConsentMethod = ConsentMethod(*method)
	}
	return rec, nil
}

// SetOptOut flips the SMS opt-out flag and timestamp for a contact.
func (c *Contacts) SetOptOut(ctx context.Context, q Querier, tenantID, contactID string, optedOut bool, at time.Time) error {
	const query = `
		UPDATE contacts
		SET sms_opted_out = $3,
			sms_opted_out_at = CASE WHEN $3 THEN $4::timestamptz ELSE NULL END,
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := q.Exec(ctx, query, tenantID, contactID, optedOut, at); err != nil {
		return fmt.Errorf("store: set opt out: %w", err)
	}
	return nil
}

// SetConsent records a fresh SMS consent grant.
func (c *Contacts) SetConsent(ctx context.Context, q Querier, tenantID, contactID string, method ConsentMethod, at time.Time) error {
	const query = `
		UPDATE contacts
		SET sms_consent = TRUE,
			sms_consent_at = $3,
			sms_consent_method = $4,
			updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`
	if _, err := q.Exec(ctx, query, tenantID, contactID, at, string(method)); err != nil {
		return fmt.Errorf("store: set consent: %w", err)
	}
	return nil
}

// CountOutboundSince counts outbound messages of kind sent to a contact
// since the given instant, for rate limiting.
func (c *Contacts) CountOutboundSince(ctx context.Context, q Querier, tenantID, contactID, kind string, since time.Time) (int, error) {
	const query = `
		SELECT count(*)
		FROM messages
		WHERE tenant_id = $1 AND contact_id = $2 AND kind = $3
			AND direction = 'outbound' AND created_at >= $4
	`
	var n int
	if err := q.QueryRow(ctx, query, tenantID, contactID, kind, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count outbound since: %w", err)
	}
	return n, nil
}
