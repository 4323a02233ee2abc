package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the reconciler.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Database   DatabaseConfig   `envPrefix:"DB_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	NewRelic   NewRelicConfig   `envPrefix:"NEW_RELIC_"`
	Fleet      FleetConfig      `envPrefix:"FLEET_"`
	Reconcile  ReconcileConfig  `envPrefix:"RECONCILE_"`
	Accounting AccountingConfig `envPrefix:"ACCOUNTING_"`
	Log        LogConfig        `envPrefix:"LOG_"`
}

// ServerConfig holds the ops HTTP server configuration.
type ServerConfig struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"NAME" envDefault:"taxibee"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional; without it the
// reconciler runs without cross-replica locks and without the driver cache.
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `env:"APP_NAME" envDefault:"fleet-order-reconciler"`
	LicenseKey string `env:"LICENSE_KEY"`
	Enabled    bool   `env:"ENABLED" envDefault:"false"`
}

// FleetConfig holds the upstream fleet API configuration.
type FleetConfig struct {
	BaseURL     string        `env:"BASE_URL" envDefault:"https://node.bolt.eu/fleet-integration-gateway"`
	CompanyID   string        `env:"COMPANY_ID" envDefault:"129914"`
	APIToken    string        `env:"API_TOKEN"`
	PageLimit   int           `env:"PAGE_LIMIT" envDefault:"1000"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"20s"`
}

// ReconcileConfig holds the poll cycle configuration.
type ReconcileConfig struct {
	Interval     time.Duration `env:"INTERVAL" envDefault:"5m"`
	StaleAfter   time.Duration `env:"STALE_AFTER" envDefault:"2h"`
	WindowBuffer time.Duration `env:"WINDOW_BUFFER" envDefault:"50s"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	Concurrency  int           `env:"CONCURRENCY" envDefault:"1"`
	LockTTL      time.Duration `env:"LOCK_TTL" envDefault:"2m"`
}

// AccountingConfig points at the driver to exact debnr mapping file.
type AccountingConfig struct {
	CodesFile string `env:"CODES_FILE"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the reconciler cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Fleet.CompanyID == "" {
		errs = append(errs, errors.New("FLEET_COMPANY_ID is required"))
	}
	if c.Fleet.PageLimit <= 0 {
		errs = append(errs, errors.New("FLEET_PAGE_LIMIT must be positive"))
	}
	durations := map[string]time.Duration{
		"RECONCILE_INTERVAL":      c.Reconcile.Interval,
		"RECONCILE_STALE_AFTER":   c.Reconcile.StaleAfter,
		"RECONCILE_FETCH_TIMEOUT": c.Reconcile.FetchTimeout,
		"RECONCILE_LOCK_TTL":      c.Reconcile.LockTTL,
		"FLEET_HTTP_TIMEOUT":      c.Fleet.HTTPTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Reconcile.WindowBuffer < 0 {
		errs = append(errs, errors.New("RECONCILE_WINDOW_BUFFER must not be negative"))
	}
	if c.Reconcile.Concurrency < 1 {
		errs = append(errs, errors.New("RECONCILE_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}
