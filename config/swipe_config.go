package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Apply store backends.
const (
	ApplyStoreMemory   = "memory"
	ApplyStorePostgres = "postgres"
	ApplyStoreRedis    = "redis"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	ApplyRateLimit int // apply requests per minute per IP, 0 disables

	// Deck
	CardCacheTTL            time.Duration
	MaxEmails               int
	BuildWorkers            int
	ApplicationRedirectBase string
	RequireFormLink         bool
	ApplicationFormHosts    []string

	// LLM
	LLMAPIKey      string
	LLMModel       string
	LLMBaseURL     string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration
	LLMJSONMode    bool
	ClassifierTTL  time.Duration

	// Gmail (server credential)
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailUserEmail    string
	GmailQuery        string

	// Sources
	MockEmailPath        string
	SourceFallbackToMock bool

	// Calendar
	MCPCalendarURL        string
	MCPCalendarAPIKey     string
	GoogleCalendarEnabled bool
	GoogleCalendarID      string

	// Storage
	ApplyStore  string
	RedisURL    string
	DatabaseURL string

	// Worker
	RefreshInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "4000"),
		Environment:    getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		ApplyRateLimit: getEnvInt("APPLY_RATE_LIMIT", 30),

		// Deck
		CardCacheTTL:            getEnvMillis("CARD_CACHE_TTL_MS", 5*time.Minute),
		MaxEmails:               getEnvInt("MAX_EMAILS", 50),
		BuildWorkers:            getEnvInt("BUILD_WORKERS", 8),
		ApplicationRedirectBase: getEnv("APPLICATION_REDIRECT_BASE", "https://tigerswipe.local/apply"),
		RequireFormLink:         getEnvBool("CARD_REQUIRE_FORM_LINK", true),
		ApplicationFormHosts:    getEnvSlice("APPLICATION_FORM_HOSTS", []string{"docs.google.com/forms", "forms.gle"}),

		// LLM
		LLMAPIKey:      getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 400),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SEC", 30)) * time.Second,
		LLMJSONMode:    getEnvBool("LLM_JSON_MODE", true),
		ClassifierTTL:  getEnvMillis("CLASSIFIER_CACHE_TTL_MS", getEnvMillis("CLAUDE_CACHE_TTL_MS", 15*time.Minute)),

		// Gmail
		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailUserEmail:    getEnv("GMAIL_USER_EMAIL", ""),
		GmailQuery:        getEnv("GMAIL_QUERY", "is:unread OR in:inbox"),

		// Sources
		MockEmailPath:        getEnv("MOCK_EMAIL_PATH", "data/mock_emails.json"),
		SourceFallbackToMock: getEnvBool("SOURCE_FALLBACK_TO_MOCK", false),

		// Calendar
		MCPCalendarURL:        getEnv("MCP_CALENDAR_URL", ""),
		MCPCalendarAPIKey:     getEnv("MCP_CALENDAR_API_KEY", ""),
		GoogleCalendarEnabled: getEnvBool("GOOGLE_CALENDAR_ENABLED", false),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),

		// Storage
		ApplyStore:  strings.ToLower(getEnv("APPLY_STORE", ApplyStoreMemory)),
		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Worker
		RefreshInterval: time.Duration(getEnvInt("REFRESH_INTERVAL_SEC", 240)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.ApplyStore {
	case ApplyStoreMemory:
	case ApplyStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("APPLY_STORE=redis requires REDIS_URL")
		}
	case ApplyStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("APPLY_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown APPLY_STORE %q", c.ApplyStore)
	}
	if c.MaxEmails <= 0 {
		return fmt.Errorf("MAX_EMAILS must be positive")
	}
	return nil
}

// GmailConfigured reports whether the server Gmail credential is complete.
func (c *Config) GmailConfigured() bool {
	return c.GmailClientID != "" && c.GmailClientSecret != "" && c.GmailRefreshToken != ""
}

// LLMEnabled reports whether a model credential is present.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
