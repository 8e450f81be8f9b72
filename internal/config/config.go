package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the lightbox service.
// Environment variables are parsed from the LIGHTBOX_ prefix.
type Config struct {
	// Build target selects the high-level environment: local (single
	// user, sqlite file) or shared (postgres)
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// Derived or override store driver
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8085"`

	// SQLite Configuration
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/lightbox.db"`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Health Configuration
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"15"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set
// to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "shared":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported LIGHTBOX_BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported LIGHTBOX_DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: LIGHTBOX_HTTP_PORT, LIGHTBOX_SQLITE_PATH.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("LIGHTBOX", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("sqlite_path", cfg.SQLitePath).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		BuildTarget: "local",
		DBDriver:    "sqlite",
		Environment: EnvTesting,
		HTTPPort:    8085,
		SQLitePath:  ":memory:",

		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
