package config

import (
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config carries every runtime knob. All values come from the environment;
// a .env file is auto-loaded in development.
type Config struct {
	Port    string
	BaseURL string

	// DatabaseURL empty means degraded mode: consult and recommend still
	// work, everything that persists is disabled.
	DatabaseURL string

	// Database pool settings
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// Anthropic (consultation engine)
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicTimeout time.Duration

	// OpenAI (LLM-first recommendation envelope)
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// Web search (venue research tool)
	SearchAPIKey string
	SearchURL    string

	// Soundtrack Your Brand GraphQL API
	SYBToken  string
	SYBAPIURL string

	// Google Maps (venue timezone enrichment)
	GoogleMapsAPIKey string

	// SMTP delivery for approval and follow-up mail
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	// RecipientEmail receives the internal copy of every approval mail.
	RecipientEmail string

	// DefaultTimezone applies when a venue has no resolved timezone.
	DefaultTimezone string

	// CatalogOverridePath points at an optional YAML file that merges
	// over the built-in vibe and venue lookup tables.
	CatalogOverridePath string

	// Logging
	LogLevel          string
	LogFormat         string // "json" or "text"
	LogFile           string
	EnableFileLogging bool

	// Keepalive self-ping (for hosts that idle out the process)
	KeepaliveEnabled bool
}

// Load reads configuration from the environment with production defaults.
func Load() *Config {
	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))
	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "8s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "6s"))

	anthropicTimeoutSec, _ := strconv.Atoi(getEnv("ANTHROPIC_TIMEOUT_SECONDS", "120"))
	openAITimeoutSec, _ := strconv.Atoi(getEnv("OPENAI_TIMEOUT_SECONDS", "60"))

	enableFileLogging, _ := strconv.ParseBool(getEnv("ENABLE_FILE_LOGGING", "false"))
	keepalive, _ := strconv.ParseBool(getEnv("KEEPALIVE_ENABLED", "true"))

	port := getEnv("PORT", "3000")

	cfg := &Config{
		Port:    port,
		BaseURL: getEnv("BASE_URL", "http://localhost:"+port),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-6"),
		AnthropicTimeout: time.Duration(anthropicTimeoutSec) * time.Second,

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: time.Duration(openAITimeoutSec) * time.Second,

		SearchAPIKey: getEnv("SEARCH_API_KEY", ""),
		SearchURL:    getEnv("SEARCH_API_URL", "https://api.search.brave.com/res/v1/web/search"),

		SYBToken:  getEnv("SYB_API_TOKEN", ""),
		SYBAPIURL: getEnv("SYB_API_URL", "https://api.soundtrackyourbrand.com/v2"),

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		RecipientEmail:  getEnv("RECIPIENT_EMAIL", "production@bmasiamusic.com"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Bangkok"),

		CatalogOverridePath: getEnv("CATALOG_OVERRIDE_PATH", ""),

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", "/var/log/music-brief-scheduler/app.log"),
		EnableFileLogging: enableFileLogging,

		KeepaliveEnabled: keepalive,
	}

	if cfg.DatabaseURL == "" {
		log.Printf("[Warning] DATABASE_URL not set, running in degraded mode (no persistence)")
	}

	return cfg
}

// Persistent reports whether a database is configured.
func (c *Config) Persistent() bool { return c.DatabaseURL != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
