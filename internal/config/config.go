// Package config defines the configuration of the P&L backend and its
// validation rules.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Offer sources
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceS3       = "s3"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PNL_* environment variables.
type Config struct {
	Pricing  PricingConfig  `toml:"pricing"`
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Trace    TraceConfig    `toml:"trace"`
	LogLevel string         `toml:"log_level"`
}

// PricingConfig holds the inputs the engine takes besides the offer log.
// Rates are in refined metal per key; TOML accepts them as strings or numbers.
type PricingConfig struct {
	KeySKU                 string          `toml:"key_sku"`
	FallbackRate           decimal.Decimal `toml:"fallback_rate"`
	MaxRate                decimal.Decimal `toml:"max_rate"`
	CurrencySKUs           []string        `toml:"currency_skus"`
	ExcludedCounterparties []string        `toml:"excluded_counterparties"`
}

// StorageConfig selects where offers and prices are read from
type StorageConfig struct {
	Source        string `toml:"source"`
	PolldataPath  string `toml:"polldata_path"`
	PricelistPath string `toml:"pricelist_path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ConnString returns the DSN, building one from the individual fields when
// none is set.
func (p PostgresConfig) ConnString() string {
	if strings.TrimSpace(p.DSN) != "" {
		return p.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// S3Config holds object-store parameters for the s3 source. The polldata and
// pricelist documents are stored as objects in one bucket.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	PolldataKey    string `toml:"polldata_key"`
	PricelistKey   string `toml:"pricelist_key"`
}

// RedisConfig holds the key-rate cache connection. The cache is optional.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	KeyRateTTL duration `toml:"key_rate_ttl"`
}

// ServerConfig holds gRPC server parameters.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	APIToken   string `toml:"api_token"`
	Reflection bool   `toml:"reflection"`
}

// TraceConfig toggles the stdout span exporter.
type TraceConfig struct {
	Enabled bool `toml:"enabled"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults for a bot
// running with its files in the working directory.
func Defaults() Config {
	return Config{
		Pricing: PricingConfig{
			KeySKU:       "5021;6",
			FallbackRate: decimal.NewFromInt(55),
			MaxRate:      decimal.NewFromInt(1000),
			CurrencySKUs: []string{"5021;6", "5002;6", "5001;6", "5000;6"},
		},
		Storage: StorageConfig{
			Source:        SourceFile,
			PolldataPath:  "polldata.json",
			PricelistPath: "pricelist.json",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pnl",
			User:          "postgres",
			Password:      "postgres",
			SSLMode:       "disable",
			RunMigrations: true,
		},
		S3: S3Config{
			Region:       "us-east-1",
			UseSSL:       true,
			PolldataKey:  "polldata.json",
			PricelistKey: "pricelist.json",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			KeyRateTTL: duration{Duration: 10 * time.Minute},
		},
		Server: ServerConfig{
			Addr:     ":8080",
			APIToken: "dev-token",
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for errors and returns all of them at once
func (c *Config) Validate() error {
	var errs []string

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}

	// Pricing
	if strings.TrimSpace(c.Pricing.KeySKU) == "" {
		errs = append(errs, "pricing: key_sku must not be empty")
	}
	if !c.Pricing.FallbackRate.IsPositive() {
		errs = append(errs, "pricing: fallback_rate must be > 0")
	}
	if c.Pricing.MaxRate.IsNegative() {
		errs = append(errs, "pricing: max_rate must be >= 0")
	}
	if c.Pricing.MaxRate.IsPositive() && c.Pricing.FallbackRate.GreaterThan(c.Pricing.MaxRate) {
		errs = append(errs, "pricing: fallback_rate must not exceed max_rate")
	}

	// Storage
	switch c.Storage.Source {
	case SourceFile:
		if c.Storage.PolldataPath == "" {
			errs = append(errs, "storage: polldata_path must not be empty for the file source")
		}
		if c.Storage.PricelistPath == "" {
			errs = append(errs, "storage: pricelist_path must not be empty for the file source")
		}
	case SourcePostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
	case SourceS3:
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.S3.PolldataKey == "" || c.S3.PricelistKey == "" {
			errs = append(errs, "s3: polldata_key and pricelist_key must not be empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown source %q (valid: file, postgres, s3)", c.Storage.Source))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.KeyRateTTL.Duration <= 0 {
			errs = append(errs, "redis: key_rate_ttl must be > 0")
		}
	}

	// Server
	if c.Server.Addr == "" {
		errs = append(errs, "server: addr must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
