// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration values for the Travel Watch binaries.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// LogLevel controls the minimum log level.
	// Valid values: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins Origins `env:"CORS_ORIGINS" envDefault:"http://localhost:5173"`

	// StoreDriver selects the persistence backend: postgres or sqlite.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string `env:"DATABASE_URL"`

	// SQLitePath is the SQLite database file. Used for sqlite.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"travelwatch.db"`

	// MigrateOnStart applies pending Postgres migrations before serving.
	// SQLite databases are always migrated when opened.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"false"`

	// RedisURL enables the country summary cache when set.
	RedisURL string `env:"REDIS_URL"`

	// SummaryCacheTTL bounds how long a cached country summary lives.
	SummaryCacheTTL time.Duration `env:"SUMMARY_CACHE_TTL" envDefault:"30s"`

	// ArchiveInterval is the period of the in-process expiry sweep.
	// Zero disables the sweeper.
	ArchiveInterval time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"0s"`

	// MaxBodyBytes caps request body size. Zero disables the limit.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// OTELEndpoint is the OTLP/HTTP collector URL. Empty disables tracing.
	OTELEndpoint string `env:"OTEL_ENDPOINT"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Origins is a comma-separated origin list. Entries are trimmed and empty
// entries dropped.
type Origins []string

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (o *Origins) UnmarshalText(text []byte) error {
	*o = splitCSV(string(text))
	return nil
}

// Load reads an optional .env file, then configuration from environment
// variables. Variables already set in the environment win over .env.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses configuration from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	var missing []string
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.StoreDriver)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if cfg.ArchiveInterval < 0 {
		return Config{}, fmt.Errorf("ARCHIVE_INTERVAL must not be negative, got %s", cfg.ArchiveInterval)
	}

	return cfg, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
