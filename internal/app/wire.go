// Package app wires configuration into repositories, caches and services
// shared by the server and the command line tool.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	s3blob "github.com/offerledger/pnl-backend/internal/adapter/blob/s3"
	"github.com/offerledger/pnl-backend/internal/adapter/cache/redis"
	"github.com/offerledger/pnl-backend/internal/adapter/polldata"
	"github.com/offerledger/pnl-backend/internal/adapter/repository/postgres"
	"github.com/offerledger/pnl-backend/internal/config"
	"github.com/offerledger/pnl-backend/internal/domain"
	"github.com/offerledger/pnl-backend/internal/usecase/pnl"
	"github.com/offerledger/pnl-backend/internal/usecase/report"
)

// Dependencies bundles the stores a report is built from. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	OfferRepo     domain.OfferRepository
	PricelistRepo domain.PricelistRepository
	PriceCache    domain.PriceCache // nil when redis is disabled

	// DB is set only for the postgres source
	DB *postgres.DB
}

// Wire constructs the configured repositories and cache and returns them
// together with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Dependencies, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.WithError(err).Warn("cleanup failed")
			}
		}
	}

	deps := &Dependencies{}

	switch cfg.Storage.Source {
	case config.SourcePostgres:
		db, err := postgres.NewDB(ctx, cfg.Postgres.ConnString())
		if err != nil {
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, db.Close)

		if cfg.Postgres.RunMigrations {
			if err := db.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.DB = db
		deps.OfferRepo = postgres.NewOfferRepository(db, logger)
		deps.PricelistRepo = postgres.NewPricelistRepository(db)
	case config.SourceS3:
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := client.Health(ctx); err != nil {
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.OfferRepo = s3blob.NewOfferRepository(client, cfg.S3.PolldataKey, logger)
		deps.PricelistRepo = s3blob.NewPricelistRepository(client, cfg.S3.PricelistKey)
	default:
		deps.OfferRepo = polldata.NewOfferRepository(cfg.Storage.PolldataPath, logger)
		deps.PricelistRepo = polldata.NewPricelistRepository(cfg.Storage.PricelistPath)
	}

	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, client.Close)
		deps.PriceCache = redis.NewKeyRateCache(client)
	}

	logger.WithFields(logrus.Fields{
		"source": cfg.Storage.Source,
		"redis":  cfg.Redis.Enabled,
	}).Info("dependencies wired")

	return deps, cleanup, nil
}

// NewReportService builds the report use case from the configuration
func NewReportService(cfg *config.Config, deps *Dependencies, logger logrus.FieldLogger) *report.ReportService {
	settings := report.Settings{
		KeySKU:                 cfg.Pricing.KeySKU,
		FallbackRate:           cfg.Pricing.FallbackRate,
		MaxRate:                cfg.Pricing.MaxRate,
		ExcludedCounterparties: cfg.Pricing.ExcludedCounterparties,
		CurrencySKUs:           cfg.Pricing.CurrencySKUs,
		CacheTTL:               cfg.Redis.KeyRateTTL.Duration,
	}

	return report.NewReportService(deps.OfferRepo, deps.PricelistRepo, deps.PriceCache, pnl.NewEngine(logger), settings, logger)
}
