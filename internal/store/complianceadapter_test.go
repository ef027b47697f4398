package store

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestComplianceAdapterGetContactSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, tenant_id, phone").
		WithArgs("tenant-1", "contact-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "phone", "primary_location_id", "sms_consent", "sms_consent_at",
			"sms_consent_method", "email_consent", "sms_opted_out", "sms_opted_out_at",
			"age_verified", "date_of_birth", "tags", "explicit_timezone", "created_at", "updated_at",
		}).AddRow("contact-1", "tenant-1", "+15555550100", "loc-1", true, &now,
			"web_form", false, false, nil, true, &now, []string{"vip"}, "", now, now))

	adapter := NewComplianceAdapter(NewContacts(New(mock)), NewLocations(New(mock)))
	snap, err := adapter.GetContactSnapshot(context.Background(), "tenant-1", "contact-1")
	if err != nil {
		t.Fatalf("get contact snapshot: %v", err)
	}
	if snap.Phone != "+15555550100" || !snap.SMSConsent {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestComplianceAdapterGetLocationSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, tenant_id, state_code").
		WithArgs("tenant-1", "loc-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "state_code", "timezone", "sms_phone_number"}).
			AddRow("loc-1", "tenant-1", "CA", "America/Los_Angeles", "+15550001111"))

	adapter := NewComplianceAdapter(NewContacts(New(mock)), NewLocations(New(mock)))
	snap, err := adapter.GetLocationSnapshot(context.Background(), "tenant-1", "loc-1")
	if err != nil {
		t.Fatalf("get location snapshot: %v", err)
	}
	if snap.Timezone != "America/Los_Angeles" || snap.SMSPhoneNumber != "+15550001111" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestRateLimitAdapterCountOutboundSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery("SELECT count\\(\\*\\)").
		WithArgs("tenant-1", "contact-1", "sms", since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	adapter := NewRateLimitAdapter(NewContacts(New(mock)))
	n, err := adapter.CountOutboundSince(context.Background(), "tenant-1", "contact-1", "sms", since)
	if err != nil {
		t.Fatalf("count outbound since: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1, got %d", n)
	}
}
