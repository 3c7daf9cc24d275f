// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. CLI flags override these
// values; the environment supplies the defaults for unattended runs.
type Config struct {
	// Destination store. A postgres:// or postgresql:// URL selects the
	// PostgreSQL backend; anything else is treated as a SQLite file path.
	DatabaseURL string

	// Default identity recorded on written tags when --tagger is not given.
	TaggerID string

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string

	// Operational settings.
	LogLevel     string
	QueryTimeout time.Duration // per-statement deadline on store operations
	WriteRetries int           // attempts for contended tag writes (PostgreSQL only)
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:  envStr("COTAG_DB", "pongogo.db"),
		TaggerID:     envStr("COTAG_TAGGER_ID", ""),
		OTELEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "cotag"),
		LogLevel:     envStr("COTAG_LOG_LEVEL", "info"),
		QueryTimeout: envDuration("COTAG_QUERY_TIMEOUT", 30*time.Second),
		WriteRetries: envInt("COTAG_WRITE_RETRIES", 3),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: COTAG_DB is required")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("config: COTAG_QUERY_TIMEOUT must be positive")
	}
	if c.WriteRetries <= 0 {
		return fmt.Errorf("config: COTAG_WRITE_RETRIES must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: COTAG_LOG_LEVEL must be one of debug, info, warn, error")
	}
	return nil
}

// IsPostgres reports whether the configured store is the PostgreSQL
// backend.
func (c Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
