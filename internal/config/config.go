package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Text generation (Ollama-compatible endpoint used to phrase challenges)
	TextGenURL     string
	TextGenModel   string
	TextGenTimeout time.Duration

	// Social metrics provider
	MetricsURL      string
	MetricsAPIKey   string
	MetricsTimeout  time.Duration
	RedisURL        string        // Optional: caches metric snapshots
	MetricsCacheTTL time.Duration // How long a cached snapshot stays fresh

	// Event stream (optional)
	KafkaBrokers []string
	KafkaTopic   string

	// Storage (S3-compatible, optional: exports are streamed directly when unset)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration

	// Engine
	SyncEnabled          bool
	SyncSchedule         string // robfig/cron spec
	ProgressMaxRetries   int
	SuggestionMultiplier float64 // Default growth factor for metric-based goal suggestions
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "GoalPulse"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envString("APP_URL", "http://localhost:8090"),
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/goalpulse.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Text generation
		TextGenURL:     envString("TEXTGEN_URL", "http://127.0.0.1:11434"),
		TextGenModel:   envString("TEXTGEN_MODEL", "llama3.2"),
		TextGenTimeout: envDuration("TEXTGEN_TIMEOUT", 8*time.Second),

		// Metrics
		MetricsURL:      envString("METRICS_URL", ""),
		MetricsAPIKey:   envString("METRICS_API_KEY", ""),
		MetricsTimeout:  envDuration("METRICS_TIMEOUT", 10*time.Second),
		RedisURL:        envString("REDIS_URL", ""),
		MetricsCacheTTL: envDuration("METRICS_CACHE_TTL", 15*time.Minute),

		// Events
		KafkaBrokers: envList("KAFKA_BROKERS"),
		KafkaTopic:   envString("KAFKA_TOPIC", "goal-events"),

		// Storage
		S3Region:        envString("S3_REGION", ""),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),

		// Engine
		SyncEnabled:          envBool("SYNC_ENABLED", true),
		SyncSchedule:         envString("SYNC_SCHEDULE", "@every 6h"),
		ProgressMaxRetries:   envInt("PROGRESS_MAX_RETRIES", 5),
		SuggestionMultiplier: envFloat("SUGGESTION_MULTIPLIER", 1.5),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows notification email to fall back to log mode.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("config invalid float, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) HasS3() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and connection strings are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName: c.AppName,
		AppEnv:  c.AppEnv,
		AppURL:  c.AppURL,
		Port:    c.Port,

		EmailFrom: c.EmailFrom,

		TextGenModel: c.TextGenModel,
		KafkaTopic:   c.KafkaTopic,
		S3Endpoint:   c.S3Endpoint,

		SyncEnabled:          c.SyncEnabled,
		SyncSchedule:         c.SyncSchedule,
		SuggestionMultiplier: c.SuggestionMultiplier,
	}
}
