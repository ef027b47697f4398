package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.QuietHoursStart != "21:00" || cfg.QuietHoursEnd != "08:00" {
		t.Fatalf("unexpected default quiet hours: %s-%s", cfg.QuietHoursStart, cfg.QuietHoursEnd)
	}
	if cfg.MaxMessagesPerDayPerRecipient != 3 {
		t.Fatalf("expected default max messages per day 3, got %d", cfg.MaxMessagesPerDayPerRecipient)
	}
	if len(cfg.OptOutKeywords) == 0 || cfg.OptOutKeywords[0] != "STOP" {
		t.Fatalf("unexpected default opt-out keywords: %v", cfg.OptOutKeywords)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("COMPLIANCE_MAX_MESSAGES_PER_DAY_PER_RECIPIENT", "5")
	t.Setenv("COMPLIANCE_OPT_OUT_KEYWORDS", "stop, quit")

	cfg := Load()
	if cfg.MaxMessagesPerDayPerRecipient != 5 {
		t.Fatalf("expected overridden max messages per day 5, got %d", cfg.MaxMessagesPerDayPerRecipient)
	}
	if len(cfg.OptOutKeywords) != 2 || cfg.OptOutKeywords[0] != "STOP" || cfg.OptOutKeywords[1] != "QUIT" {
		t.Fatalf("unexpected parsed opt-out keywords: %v", cfg.OptOutKeywords)
	}
}

func TestIssuesFlagsMissingProviderConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("PROVIDER_API_KEY", "")
	t.Setenv("PROVIDER_MESSAGING_PROFILE_ID", "")
	t.Setenv("PROVIDER_PUBLIC_KEY", "")

	cfg := Load()
	issues := cfg.Issues()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(issues), issues)
	}
}
