// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port        string
	Env         string
	APIBaseURL  string
	LogLevel    string

	DatabaseURL      string
	DatabasePoolMin  int
	DatabasePoolMax  int

	RedisURL string

	ProviderAPIKey             string
	ProviderPublicKey          string
	ProviderMessagingProfileID string
	ProviderCostPerSegmentCents int

	QuietHoursStart              string
	QuietHoursEnd                string
	MaxMessagesPerDayPerRecipient int
	OptOutKeywords               []string
	OptInKeywords                []string

	RateLimitWindowMS int
	RateLimitMax      int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		APIBaseURL: getEnv("API_BASE_URL", ""),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabasePoolMin: getEnvAsInt("DATABASE_POOL_MIN", 2),
		DatabasePoolMax: getEnvAsInt("DATABASE_POOL_MAX", 10),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		ProviderAPIKey:              getEnv("PROVIDER_API_KEY", ""),
		ProviderPublicKey:           getEnv("PROVIDER_PUBLIC_KEY", ""),
		ProviderMessagingProfileID:  getEnv("PROVIDER_MESSAGING_PROFILE_ID", ""),
		ProviderCostPerSegmentCents: getEnvAsInt("PROVIDER_COST_PER_SEGMENT_CENTS", 0),

		QuietHoursStart:               getEnv("COMPLIANCE_QUIET_HOURS_START", "21:00"),
		QuietHoursEnd:                 getEnv("COMPLIANCE_QUIET_HOURS_END", "08:00"),
		MaxMessagesPerDayPerRecipient: getEnvAsInt("COMPLIANCE_MAX_MESSAGES_PER_DAY_PER_RECIPIENT", 3),
		OptOutKeywords:                getEnvAsList("COMPLIANCE_OPT_OUT_KEYWORDS", []string{"STOP", "UNSUBSCRIBE", "CANCEL", "END", "QUIT"}),
		OptInKeywords:                 getEnvAsList("COMPLIANCE_OPT_IN_KEYWORDS", []string{"START", "YES", "SUBSCRIBE", "UNSTOP"}),

		RateLimitWindowMS: getEnvAsInt("RATE_LIMIT_WINDOW_MS", 60_000),
		RateLimitMax:      getEnvAsInt("RATE_LIMIT_MAX", 120),
	}
}

// Issues returns configuration problems that would prevent the service from
// sending. An empty slice means the minimum viable configuration is present.
func (c *Config) Issues() []string {
	var issues []string
	if c.DatabaseURL == "" {
		issues = append(issues, "DATABASE_URL is empty")
	}
	if c.ProviderAPIKey == "" {
		issues = append(issues, "PROVIDER_API_KEY is empty — outbound sends will fail")
	}
	if c.ProviderMessagingProfileID == "" {
		issues = append(issues, "PROVIDER_MESSAGING_PROFILE_ID is empty — outbound sends will fail")
	}
	if c.ProviderPublicKey == "" {
		issues = append(issues, "PROVIDER_PUBLIC_KEY is empty — inbound webhook signatures cannot be verified")
	}
	return issues
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
