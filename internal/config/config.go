package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSessionSecret = "change-me-in-production-min-32-chars"
	defaultJWTSecret     = "change-me-jwt-secret-min-32-characters"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env      string // "development", "production", etc.
	LogLevel string // debug, info, warn, error

	// Server
	ServerAddr     string
	BaseURL        string
	MaxUploadBytes int64 // largest accepted request body, resume uploads included
	RateLimit      int   // requests per minute per IP, 0 disables

	// Database
	DatabaseURL string

	// Session storage; in-memory when empty
	RedisURL string

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Session
	SessionSecret string // Used for encrypting cookies (min 32 chars)

	// Bearer tokens
	JWTSecret string
	JWTTTL    time.Duration

	// CORS
	CORSOrigins string // Comma-separated allowed origins, e.g. "https://example.com,https://app.example.com"

	// Job description fetching
	FetchTimeout time.Duration

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      string // none, tls, starttls

	// Follow-up reminders
	RemindersEnabled   bool
	ReminderInterval   time.Duration
	ReminderStaleAfter time.Duration

	// Resume archive (S3 or R2-compatible)
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool

	// Change-event fan-out
	AMQPURL      string
	AMQPExchange string

	// Site Branding
	SiteTitle string // env: SITE_TITLE, default: "Job Tracker"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServerAddr:     getEnv("SERVER_ADDR", ":3000"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/jobtracker?sslmode=disable"),
		RedisURL:       getEnv("REDIS_URL", ""),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		SessionSecret:    getEnv("SESSION_SECRET", defaultSessionSecret),

		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		CORSOrigins:  getEnv("CORS_ORIGINS", ""),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Job Tracker"),
		SMTPTLS:      strings.ToLower(getEnv("SMTP_TLS", "starttls")),

		RemindersEnabled:   getEnvBool("REMINDERS_ENABLED", false),
		ReminderInterval:   getEnvDuration("REMINDER_INTERVAL", time.Hour),
		ReminderStaleAfter: getEnvDuration("REMINDER_STALE_AFTER", 14*24*time.Hour),

		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Region:    getEnv("S3_REGION", "auto"),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PathStyle: getEnvBool("S3_PATH_STYLE", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "application_events"),

		SiteTitle: getEnv("SITE_TITLE", "Job Tracker"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsOIDCEnabled returns true if an OIDC issuer is configured.
func (c *Config) IsOIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// IsEmailEnabled returns true if SMTP is configured.
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// IsRemindersEnabled returns true if follow-up reminders should run.
func (c *Config) IsRemindersEnabled() bool {
	return c.RemindersEnabled && c.IsEmailEnabled() && c.ReminderInterval > 0
}

// IsStorageEnabled returns true if uploaded resumes should be archived.
func (c *Config) IsStorageEnabled() bool {
	return c.S3Bucket != ""
}

// Validate rejects settings that are unsafe outside development.
func (c *Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if !c.IsDev() {
		if c.SessionSecret == defaultSessionSecret {
			errs = append(errs, errors.New("SESSION_SECRET must be changed in production"))
		}
		if c.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
		}
		if !c.IsOIDCEnabled() {
			errs = append(errs, errors.New("OIDC_ISSUER and OIDC_CLIENT_ID are required in production"))
		}
	}
	switch c.SMTPTLS {
	case "none", "tls", "starttls":
	default:
		errs = append(errs, errors.New("SMTP_TLS must be none, tls or starttls"))
	}
	return errors.Join(errs...)
}
