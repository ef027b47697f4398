package compliance

import "time"

// Kind is the messaging channel a compliance decision is evaluated for.
type Kind string

const (
	KindSMS   Kind = "sms"
	KindEmail Kind = "email"
)

// ContactSnapshot is the subset of contact state the gate reasons about. It
// is a snapshot, not a live handle — store.Contact is mapped into this on
// every Evaluate call so the gate package has no dependency on the store's
// persistence types.
type ContactSnapshot struct {
	ID                 string
	TenantID           string
	Phone              string
	PrimaryLocationID  string
	SMSConsent         bool
	SMSConsentAt       *time.Time
	EmailConsent       bool
	SMSOptedOut        bool
	SMSOptedOutAt      *time.Time
	AgeVerified        bool
	DateOfBirth        *time.Time
	Tags               []string
	ExplicitTimezone   string
}

// LocationSnapshot is the subset of location state the gate reasons about.
type LocationSnapshot struct {
	ID             string
	StateCode      string
	Timezone       string
	SMSPhoneNumber string
}

// Decision is the outcome of Gate.Evaluate.
type Decision string

const (
	Allow Decision = "ALLOW"
	Block Decision = "BLOCK"
	Defer Decision = "DEFER"
)

// CheckName identifies one of the 7 fixed-order compliance checks.
type CheckName string

const (
	CheckConsent       CheckName = "consent"
	CheckOptOut        CheckName = "opt_out"
	CheckAge           CheckName = "age_verification"
	CheckGlobalOptOut  CheckName = "global_opt_out"
	CheckQuietHours    CheckName = "quiet_hours"
	CheckRateLimit     CheckName = "rate_limit"
	CheckStateRules    CheckName = "state_rules"
)

// EvaluateResult is the full output of a Gate.Evaluate call.
type EvaluateResult struct {
	Decision   Decision
	Reasons    []string
	Checks     map[CheckName]bool
	RetryAfter *time.Time
	Contact    *ContactSnapshot
}

// StateRule is a per-state policy hook. The default gate runs zero rules;
// new rules plug in without changing the Evaluate signature.
type StateRule func(ContactSnapshot) []string
