package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/offerledger/pnl-backend/internal/adapter/polldata"
	"github.com/offerledger/pnl-backend/internal/adapter/repository/postgres"
	"github.com/offerledger/pnl-backend/internal/app"
	"github.com/offerledger/pnl-backend/internal/config"
	"github.com/offerledger/pnl-backend/internal/domain"
	"github.com/offerledger/pnl-backend/internal/usecase/pnl"
)

// loadConfig loads and validates the configuration after fix applies the
// command's flag overrides.
func loadConfig(path string, logger *logrus.Logger, fix func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if fix != nil {
		fix(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)
	return cfg, nil
}

type reportOutput struct {
	ReportID    string           `json:"reportId"`
	GeneratedAt string           `json:"generatedAt"`
	KeyRate     string           `json:"keyRate"`
	RateSource  string           `json:"rateSource"`
	Report      *domain.Report   `json:"report"`
	TopItems    []pnl.RankedItem `json:"topItems,omitempty"`
}

func runReport(ctx context.Context, args []string, out io.Writer, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	polldataPath := fs.String("polldata", "", "polldata.json to read (forces the file source)")
	pricelistPath := fs.String("pricelist", "", "pricelist.json to read")
	limit := fs.Int("limit", 0, "also list the n items with the largest realized profit or loss")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must not be negative")
	}

	cfg, err := loadConfig(*configPath, logger, func(c *config.Config) {
		if *polldataPath != "" {
			c.Storage.Source = config.SourceFile
			c.Storage.PolldataPath = *polldataPath
		}
		if *pricelistPath != "" {
			c.Storage.PricelistPath = *pricelistPath
		}
	})
	if err != nil {
		return err
	}

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := app.NewReportService(cfg, deps, logger).Generate(ctx)
	if err != nil {
		return err
	}

	output := reportOutput{
		ReportID:    result.ID.String(),
		GeneratedAt: result.GeneratedAt.Format(time.RFC3339Nano),
		KeyRate:     result.KeyRate.String(),
		RateSource:  string(result.RateSource),
		Report:      result.Report,
	}
	if *limit > 0 {
		output.TopItems = pnl.RankItems(result.Report.PerItem, *limit)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func runImport(ctx context.Context, args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	polldataPath := fs.String("polldata", "", "polldata.json to import")
	pricelistPath := fs.String("pricelist", "", "pricelist.json to import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *polldataPath == "" && *pricelistPath == "" {
		return errors.New("nothing to import: set -polldata and/or -pricelist")
	}

	cfg, err := loadConfig(*configPath, logger, nil)
	if err != nil {
		return err
	}
	if cfg.Storage.Source != config.SourcePostgres {
		return fmt.Errorf("import needs storage.source = %q, got %q", config.SourcePostgres, cfg.Storage.Source)
	}

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if *polldataPath != "" {
		f, err := os.Open(*polldataPath)
		if err != nil {
			return fmt.Errorf("failed to open polldata: %w", err)
		}
		defer f.Close()

		raw, err := polldata.ReadRaw(f)
		if err != nil {
			return err
		}
		if err := postgres.NewOfferRepository(deps.DB, logger).Import(ctx, raw.Offers, raw.PollTimes); err != nil {
			return err
		}
		logger.WithField("offers", len(raw.Offers)).Info("offers imported")
	}

	if *pricelistPath != "" {
		f, err := os.Open(*pricelistPath)
		if err != nil {
			return fmt.Errorf("failed to open pricelist: %w", err)
		}
		defer f.Close()

		entries, err := polldata.DecodePricelist(f)
		if err != nil {
			return err
		}
		for i := range entries {
			if err := deps.PricelistRepo.Add(ctx, &entries[i]); err != nil {
				return err
			}
		}
		logger.WithField("entries", len(entries)).Info("pricelist imported")
	}

	return nil
}

func runPrice(ctx context.Context, args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	sku := fs.String("sku", "", "item sku")
	buyKeys := fs.String("buy-keys", "0", "buy price, keys")
	buyMetal := fs.String("buy-metal", "0", "buy price, refined metal")
	sellKeys := fs.String("sell-keys", "0", "sell price, keys")
	sellMetal := fs.String("sell-metal", "0", "sell price, refined metal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sku == "" {
		return errors.New("sku is required")
	}

	buy, err := priceValue(*buyKeys, *buyMetal)
	if err != nil {
		return fmt.Errorf("buy: %w", err)
	}
	sell, err := priceValue(*sellKeys, *sellMetal)
	if err != nil {
		return fmt.Errorf("sell: %w", err)
	}

	cfg, err := loadConfig(*configPath, logger, nil)
	if err != nil {
		return err
	}

	deps, cleanup, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Second)
	entry := &domain.PriceEntry{
		ID:   polldata.EntryID(*sku, now),
		SKU:  *sku,
		Buy:  buy,
		Sell: sell,
		Time: now,
	}
	if err := deps.PricelistRepo.Add(ctx, entry); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"sku": entry.SKU,
		"id":  entry.ID.String(),
	}).Info("price recorded")
	return nil
}

func priceValue(keys, metal string) (domain.Value, error) {
	k, err := decimal.NewFromString(keys)
	if err != nil {
		return domain.Value{}, fmt.Errorf("invalid keys %q: %w", keys, err)
	}
	m, err := decimal.NewFromString(metal)
	if err != nil {
		return domain.Value{}, fmt.Errorf("invalid metal %q: %w", metal, err)
	}
	if k.IsNegative() || m.IsNegative() {
		return domain.Value{}, errors.New("prices must not be negative")
	}
	return domain.KeysMetal(k, m), nil
}
