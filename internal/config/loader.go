package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults and applies PNL_* environment variable overrides. An
// empty path skips the file. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Pricing
	setStr(&cfg.Pricing.KeySKU, "PNL_PRICING_KEY_SKU")
	setDecimal(&cfg.Pricing.FallbackRate, "PNL_PRICING_FALLBACK_RATE")
	setDecimal(&cfg.Pricing.MaxRate, "PNL_PRICING_MAX_RATE")
	setStringSlice(&cfg.Pricing.CurrencySKUs, "PNL_PRICING_CURRENCY_SKUS")
	setStringSlice(&cfg.Pricing.ExcludedCounterparties, "PNL_PRICING_EXCLUDED_COUNTERPARTIES")

	// Storage
	setStr(&cfg.Storage.Source, "PNL_STORAGE_SOURCE")
	setStr(&cfg.Storage.PolldataPath, "PNL_STORAGE_POLLDATA_PATH")
	setStr(&cfg.Storage.PricelistPath, "PNL_STORAGE_PRICELIST_PATH")

	// Postgres
	setStr(&cfg.Postgres.DSN, "PNL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PNL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PNL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PNL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PNL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PNL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PNL_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "PNL_POSTGRES_RUN_MIGRATIONS")

	// S3
	setStr(&cfg.S3.Endpoint, "PNL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PNL_S3_REGION")
	setStr(&cfg.S3.Bucket, "PNL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PNL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PNL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PNL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PNL_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.PolldataKey, "PNL_S3_POLLDATA_KEY")
	setStr(&cfg.S3.PricelistKey, "PNL_S3_PRICELIST_KEY")

	// Redis
	setBool(&cfg.Redis.Enabled, "PNL_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PNL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PNL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PNL_REDIS_DB")
	setDuration(&cfg.Redis.KeyRateTTL, "PNL_REDIS_KEY_RATE_TTL")

	// Server
	setStr(&cfg.Server.Addr, "PNL_SERVER_ADDR")
	setStr(&cfg.Server.APIToken, "PNL_SERVER_API_TOKEN")
	setBool(&cfg.Server.Reflection, "PNL_SERVER_REFLECTION")

	setBool(&cfg.Trace.Enabled, "PNL_TRACE_ENABLED")
	setStr(&cfg.LogLevel, "PNL_LOG_LEVEL")
}

// Each helper only mutates the target when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
