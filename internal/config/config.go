package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// Env is "dev" (default) or "prod".
	Env string

	// TickInterval is how often the scheduler polls for due schedules
	// (default 60s). Set via TICK_INTERVAL_SECONDS.
	TickInterval time.Duration

	// StaleClaimAfter is how long a claim marker may sit before the reaper
	// clears it. Zero means ten tick intervals. Set via STALE_CLAIM_AFTER_SECONDS.
	StaleClaimAfter time.Duration

	// DefaultFrequency and DefaultRunAt fill in schedule fields the caller
	// leaves blank.
	DefaultFrequency string
	DefaultRunAt     string

	// ScannerURL is the base URL of the scan service.
	ScannerURL string

	// ScanTimeout bounds a single scan; NotifyTimeout bounds a single
	// notification delivery.
	ScanTimeout   time.Duration
	NotifyTimeout time.Duration

	// Notifier selects the delivery channel: "email" (default) or "slack".
	Notifier string

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPPassword string

	SlackToken string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	// When empty, the API listens with plain HTTP.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string

	// CORSAllowedOrigins is a list of origins allowed for CORS (e.g. https://app.example.com).
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "docwatch"),
		DBUser: getEnv("DB_USER", "docwatch"),
		DBPass: getEnv("DB_PASS", "docwatch"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		Env: getEnv("ENV", "dev"),

		TickInterval:    time.Duration(getEnvInt("TICK_INTERVAL_SECONDS", 60)) * time.Second,
		StaleClaimAfter: time.Duration(getEnvInt("STALE_CLAIM_AFTER_SECONDS", 600)) * time.Second,

		DefaultFrequency: getEnv("DEFAULT_FREQUENCY", "weekly"),
		DefaultRunAt:     getEnv("DEFAULT_RUN_AT", "09:00"),

		ScannerURL: getEnv("SCANNER_URL", "http://localhost:9090"),

		ScanTimeout:   time.Duration(getEnvInt("SCAN_TIMEOUT_SECONDS", 600)) * time.Second,
		NotifyTimeout: time.Duration(getEnvInt("NOTIFY_TIMEOUT_SECONDS", 30)) * time.Second,

		Notifier: getEnv("NOTIFIER", "email"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPFrom:     getEnv("SMTP_FROM", "docwatch@localhost"),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SlackToken: getEnv("SLACK_TOKEN", ""),

		// Optional TLS configuration for HTTPS.
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
