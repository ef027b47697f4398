package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/wolfman30/cannasend/internal/compliance/quiethours"
)

type fakeContactStore struct {
	contact  ContactSnapshot
	location LocationSnapshot
}

func (f fakeContactStore) GetContactSnapshot(ctx context.Context, tenantID, contactID string) (ContactSnapshot, error) {
	return f.contact, nil
}

func (f fakeContactStore) GetLocationSnapshot(ctx context.Context, tenantID, locationID string) (LocationSnapshot, error) {
	return f.location, nil
}

type fakeGlobalOptOuts struct {
	optedOut bool
}

func (f fakeGlobalOptOuts) IsGloballyOptedOut(ctx context.Context, phone string) (bool, error) {
	return f.optedOut, nil
}

type fakeRateLimiter struct {
	count int
}

func (f fakeRateLimiter) CountOutboundSince(ctx context.Context, tenantID, contactID string, kind Kind, since time.Time) (int, error) {
	return f.count, nil
}

func eligibleContact() ContactSnapshot {
	consentAt := time.Now().Add(-24 * time.Hour)
	dob := time.Now().AddDate(-30, 0, 0)
	return ContactSnapshot{
		ID:                "contact-1",
		TenantID:          "tenant-1",
		Phone:             "+15555550100",
		PrimaryLocationID: "loc-1",
		SMSConsent:        true,
		SMSConsentAt:      &consentAt,
		AgeVerified:       true,
		DateOfBirth:       &dob,
	}
}

func newTestGate(contact ContactSnapshot, globalOptOut bool, rateCount int) *Gate {
	store := fakeContactStore{
		contact:  contact,
		location: LocationSnapshot{ID: "loc-1", StateCode: "CA", Timezone: "America/Los_Angeles"},
	}
	g := NewGate(store, fakeGlobalOptOuts{optedOut: globalOptOut}, fakeRateLimiter{count: rateCount}, Config{
		QuietHours:        quiethours.Window{StartMinutes: 21 * 60, EndMinutes: 8 * 60},
		MaxMessagesPerDay: 3,
	})
	g.now = func() time.Time {
		t, _ := time.Parse(time.RFC3339, "2024-10-05T12:00:00-07:00")
		return t
	}
	return g
}

func TestEvaluateAllowsEligibleContact(t *testing.T) {
	g := newTestGate(eligibleContact(), false, 0)
	result, err := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision != Allow {
		t.Fatalf("want Allow, got %s reasons=%v", result.Decision, result.Reasons)
	}
}

func TestEvaluateBlocksMissingConsent(t *testing.T) {
	contact := eligibleContact()
	contact.SMSConsent = false
	contact.SMSConsentAt = nil
	g := newTestGate(contact, false, 0)
	result, err := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision != Block {
		t.Fatalf("want Block, got %s", result.Decision)
	}
	if result.Checks[CheckConsent] {
		t.Fatalf("expected consent check to fail")
	}
}

func TestEvaluateBlocksOptedOutContact(t *testing.T) {
	contact := eligibleContact()
	contact.SMSOptedOut = true
	g := newTestGate(contact, false, 0)
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Decision != Block {
		t.Fatalf("want Block, got %s", result.Decision)
	}
}

func TestEvaluateUnder21Blocked(t *testing.T) {
	contact := eligibleContact()
	young := time.Now().AddDate(-19, 0, 0)
	contact.DateOfBirth = &young
	g := newTestGate(contact, false, 0)
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Decision != Block {
		t.Fatalf("want Block, got %s", result.Decision)
	}
	if result.Checks[CheckAge] {
		t.Fatalf("expected age check to fail")
	}
}

func TestEvaluateMissingDOBFailsAgeConservatively(t *testing.T) {
	contact := eligibleContact()
	contact.DateOfBirth = nil
	g := newTestGate(contact, false, 0)
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Checks[CheckAge] {
		t.Fatalf("expected age check to fail when DOB absent even if age_verified is true")
	}
}

func TestEvaluateGlobalOptOutBlocks(t *testing.T) {
	g := newTestGate(eligibleContact(), true, 0)
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Decision != Block {
		t.Fatalf("want Block, got %s", result.Decision)
	}
	if result.Checks[CheckGlobalOptOut] {
		t.Fatalf("expected global opt-out check to fail")
	}
}

func TestEvaluateRateLimitBlocks(t *testing.T) {
	g := newTestGate(eligibleContact(), false, 3)
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Decision != Block {
		t.Fatalf("want Block, got %s", result.Decision)
	}
	if result.Checks[CheckRateLimit] {
		t.Fatalf("expected rate limit check to fail")
	}
}

func TestEvaluateQuietHoursDefersWithRetryAfter(t *testing.T) {
	g := newTestGate(eligibleContact(), false, 0)
	g.now = func() time.Time {
		t, _ := time.Parse(time.RFC3339, "2024-10-05T22:00:00-07:00")
		return t
	}
	result, err := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision != Defer {
		t.Fatalf("want Defer, got %s reasons=%v", result.Decision, result.Reasons)
	}
	if result.RetryAfter == nil {
		t.Fatalf("expected retry_after to be set")
	}
}

func TestEvaluateQuietHoursPlusOtherFailureBlocks(t *testing.T) {
	contact := eligibleContact()
	contact.SMSOptedOut = true
	g := newTestGate(contact, false, 0)
	g.now = func() time.Time {
		t, _ := time.Parse(time.RFC3339, "2024-10-05T22:00:00-07:00")
		return t
	}
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Decision != Block {
		t.Fatalf("quiet hours plus another failing check must BLOCK, got %s", result.Decision)
	}
}

func TestEvaluateStateRuleBlocks(t *testing.T) {
	store := fakeContactStore{
		contact:  eligibleContact(),
		location: LocationSnapshot{ID: "loc-1", StateCode: "TX", Timezone: "America/Chicago"},
	}
	g := NewGate(store, fakeGlobalOptOuts{}, fakeRateLimiter{}, Config{
		QuietHours: quiethours.Window{StartMinutes: 21 * 60, EndMinutes: 8 * 60},
		StateRules: []StateRule{
			func(c ContactSnapshot) []string {
				return []string{"cannabis marketing disabled in this state"}
			},
		},
	})
	g.now = func() time.Time {
		t, _ := time.Parse(time.RFC3339, "2024-10-05T12:00:00-06:00")
		return t
	}
	result, _ := g.Evaluate(context.Background(), "tenant-1", "contact-1", KindSMS)
	if result.Decision != Block {
		t.Fatalf("want Block, got %s", result.Decision)
	}
	if result.Checks[CheckStateRules] {
		t.Fatalf("expected state rule check to fail")
	}
}
