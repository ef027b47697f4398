package store

import (
	"context"
	"time"

	"github.com/wolfman30/cannasend/internal/compliance"
)

// ComplianceAdapter exposes Contacts and Locations through the read
// interface internal/compliance.Gate depends on. Gate evaluation is a
// read path, so it reads through the pool directly rather than inside
// InTenantTx — the dispatching caller wraps its own writes in a tenant
// transaction separately.
type ComplianceAdapter struct {
	contacts  *Contacts
	locations *Locations
}

// NewComplianceAdapter wraps a Contacts/Locations pair for compliance.Gate.
func NewComplianceAdapter(contacts *Contacts, locations *Locations) *ComplianceAdapter {
	return &ComplianceAdapter{contacts: contacts, locations: locations}
}

// GetContactSnapshot implements compliance.ContactStore.
func (a *ComplianceAdapter) GetContactSnapshot(ctx context.Context, tenantID, contactID string) (compliance.ContactSnapshot, error) {
	c, err := a.contacts.GetByID(ctx, a.contacts.Pool(), tenantID, contactID)
	if err != nil {
		return compliance.ContactSnapshot{}, err
	}
	return compliance.ContactSnapshot{
		ID:                c.ID,
		TenantID:          c.TenantID,
		Phone:             c.Phone,
		PrimaryLocationID: c.PrimaryLocationID,
		SMSConsent:        c.SMSConsent,
		SMSConsentAt:      c.SMSConsentAt,
		EmailConsent:      c.EmailConsent,
		SMSOptedOut:       c.SMSOptedOut,
		SMSOptedOutAt:     c.SMSOptedOutAt,
		AgeVerified:       c.AgeVerified,
		DateOfBirth:       c.DateOfBirth,
		Tags:              c.Tags,
		ExplicitTimezone:  c.ExplicitTimezone,
	}, nil
}

// GetLocationSnapshot implements compliance.ContactStore.
func (a *ComplianceAdapter) GetLocationSnapshot(ctx context.Context, tenantID, locationID string) (compliance.LocationSnapshot, error) {
	l, err := a.locations.GetByID(ctx, a.locations.Pool(), tenantID, locationID)
	if err != nil {
		return compliance.LocationSnapshot{}, err
	}
	return compliance.LocationSnapshot{
		ID:             l.ID,
		StateCode:      l.StateCode,
		Timezone:       l.Timezone,
		SMSPhoneNumber: l.SMSPhoneNumber,
	}, nil
}

// RateLimitAdapter implements compliance.RateLimitCounter over Contacts.
type RateLimitAdapter struct {
	contacts *Contacts
}

// NewRateLimitAdapter wraps a Contacts store for compliance.Gate's rate
// limit check.
func NewRateLimitAdapter(contacts *Contacts) *RateLimitAdapter {
	return &RateLimitAdapter{contacts: contacts}
}

// CountOutboundSince implements compliance.RateLimitCounter.
func (a *RateLimitAdapter) CountOutboundSince(ctx context.Context, tenantID, contactID string, kind compliance.Kind, since time.Time) (int, error) {
	return a.contacts.CountOutboundSince(ctx, a.contacts.Pool(), tenantID, contactID, string(kind), since)
}
