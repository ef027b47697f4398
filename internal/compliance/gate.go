// Package compliance implements the deterministic policy engine that gates
// every outbound send: consent, opt-out, age verification, the cross-tenant
// global opt-out list, quiet hours, per-recipient rate limiting, and a
// per-state extension point.
package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/cannasend/internal/compliance/quiethours"
)

const defaultTimezone = "America/Los_Angeles"
const minimumAgeYears = 21

// ContactStore resolves the contact and location rows a gate decision needs.
type ContactStore interface {
	GetContactSnapshot(ctx context.Context, tenantID, contactID string) (ContactSnapshot, error)
	GetLocationSnapshot(ctx context.Context, tenantID, locationID string) (LocationSnapshot, error)
}

// GlobalOptOutChecker answers whether a phone number has opted out platform-wide.
type GlobalOptOutChecker interface {
	IsGloballyOptedOut(ctx context.Context, phone string) (bool, error)
}

// RateLimitCounter counts outbound sends of a kind to a contact in a trailing window.
type RateLimitCounter interface {
	CountOutboundSince(ctx context.Context, tenantID, contactID string, kind Kind, since time.Time) (int, error)
}

// Config controls the tunable thresholds of the gate.
type Config struct {
	QuietHours      quiethours.Window
	MaxMessagesPerDay int
	DefaultTimezone string
	StateRules      []StateRule
}

// Gate evaluates the 7 fixed-order compliance checks.
type Gate struct {
	contacts   ContactStore
	globalOpts GlobalOptOutChecker
	rateLimit  RateLimitCounter
	clock      quiethours.Clock
	cfg        Config
	now        func() time.Time
}

// NewGate builds a Gate from its collaborators and config.
func NewGate(contacts ContactStore, globalOpts GlobalOptOutChecker, rateLimit RateLimitCounter, cfg Config) *Gate {
	if cfg.MaxMessagesPerDay <= 0 {
		cfg.MaxMessagesPerDay = 3
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = defaultTimezone
	}
	return &Gate{
		contacts:   contacts,
		globalOpts: globalOpts,
		rateLimit:  rateLimit,
		clock:      quiethours.NewClock(cfg.QuietHours),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Evaluate runs all 7 checks (no short-circuit) and aggregates the decision.
func (g *Gate) Evaluate(ctx context.Context, tenantID, contactID string, kind Kind) (EvaluateResult, error) {
	contact, err := g.contacts.GetContactSnapshot(ctx, tenantID, contactID)
	if err != nil {
		return EvaluateResult{}, fmt.Errorf("compliance: load contact: %w", err)
	}

	result := EvaluateResult{
		Checks:  make(map[CheckName]bool, 7),
		Contact: &contact,
	}
	now := g.now()

	// 1. Consent.
	consentOK := true
	if kind == KindSMS {
		if !contact.SMSConsent || contact.SMSConsentAt == nil {
			result.Reasons = append(result.Reasons, "No SMS consent on file")
			consentOK = false
		}
	}
	if kind == KindEmail {
		if !contact.EmailConsent {
			result.Reasons = append(result.Reasons, "No email consent on file")
			consentOK = false
		}
	}
	result.Checks[CheckConsent] = consentOK

	// 2. Opt-out flag.
	optOutOK := true
	if kind == KindSMS && contact.SMSOptedOut {
		result.Reasons = append(result.Reasons, "Contact has opted out of SMS")
		optOutOK = false
	}
	result.Checks[CheckOptOut] = optOutOK

	// 3. Age verification.
	ageOK := true
	if !contact.AgeVerified {
		result.Reasons = append(result.Reasons, "Contact is not age verified")
		ageOK = false
	} else if contact.DateOfBirth != nil {
		if ageInYears(*contact.DateOfBirth, now) < minimumAgeYears {
			result.Reasons = append(result.Reasons, "Contact is under 21")
			ageOK = false
		}
	} else {
		result.Reasons = append(result.Reasons, "Contact is under 21")
		ageOK = false
	}
	result.Checks[CheckAge] = ageOK

	// 4. Global opt-out (SMS only).
	globalOK := true
	if kind == KindSMS && g.globalOpts != nil {
		optedOut, err := g.globalOpts.IsGloballyOptedOut(ctx, contact.Phone)
		if err != nil {
			return EvaluateResult{}, fmt.Errorf("compliance: global opt-out lookup: %w", err)
		}
		if optedOut {
			result.Reasons = append(result.Reasons, "Phone number is on the global opt-out list")
			globalOK = false
		}
	}
	result.Checks[CheckGlobalOptOut] = globalOK

	// 5. Quiet hours (SMS only).
	quietOK := true
	if kind == KindSMS {
		tz := g.resolveTimezone(ctx, tenantID, contact)
		if g.clock.IsInWindow(tz, now) {
			result.Reasons = append(result.Reasons, "Within recipient quiet hours")
			quietOK = false
			retryAt := g.clock.WindowEndAfter(tz, now)
			result.RetryAfter = &retryAt
		}
	}
	result.Checks[CheckQuietHours] = quietOK

	// 6. Rate limit.
	rateOK := true
	if g.rateLimit != nil {
		count, err := g.rateLimit.CountOutboundSince(ctx, tenantID, contactID, kind, now.Add(-24*time.Hour))
		if err != nil {
			return EvaluateResult{}, fmt.Errorf("compliance: rate limit lookup: %w", err)
		}
		if count >= g.cfg.MaxMessagesPerDay {
			result.Reasons = append(result.Reasons, "Daily message limit reached")
			rateOK = false
		}
	}
	result.Checks[CheckRateLimit] = rateOK

	// 7. Per-state rules.
	stateOK := true
	loc := g.locationForState(ctx, tenantID, contact)
	for _, rule := range g.cfg.StateRules {
		reasons := rule(contact)
		if len(reasons) > 0 {
			result.Reasons = append(result.Reasons, reasons...)
			stateOK = false
		}
	}
	_ = loc
	result.Checks[CheckStateRules] = stateOK

	result.Decision = aggregate(result)
	return result, nil
}

// ScanContent performs the advisory health-claim/minor-appealing word scan.
// It never blocks a send; callers log the issues.
func (g *Gate) ScanContent(text, state string) ContentScanResult {
	return NewContentScanner().Scan(text, state)
}

func aggregate(result EvaluateResult) Decision {
	failing := make([]CheckName, 0, len(result.Checks))
	for name, ok := range result.Checks {
		if !ok {
			failing = append(failing, name)
		}
	}
	if len(failing) == 0 {
		return Allow
	}
	if len(failing) == 1 && failing[0] == CheckQuietHours && result.RetryAfter != nil {
		return Defer
	}
	return Block
}

func (g *Gate) resolveTimezone(ctx context.Context, tenantID string, contact ContactSnapshot) *time.Location {
	name := contact.ExplicitTimezone
	if name == "" {
		if loc := g.locationForState(ctx, tenantID, contact); loc != nil {
			name = loc.Timezone
		}
	}
	if name == "" {
		name = g.cfg.DefaultTimezone
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		tz, _ = time.LoadLocation(g.cfg.DefaultTimezone)
	}
	if tz == nil {
		tz = time.UTC
	}
	return tz
}

func (g *Gate) locationForState(ctx context.Context, tenantID string, contact ContactSnapshot) *LocationSnapshot {
	if contact.PrimaryLocationID == "" || g.contacts == nil {
		return nil
	}
	loc, err := g.contacts.GetLocationSnapshot(ctx, tenantID, contact.PrimaryLocationID)
	if err != nil {
		return nil
	}
	return &loc
}

func ageInYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	return years
}
