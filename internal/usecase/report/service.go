package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/offerledger/pnl-backend/internal/domain"
	"github.com/offerledger/pnl-backend/internal/trace"
	"github.com/offerledger/pnl-backend/internal/usecase/pnl"
)

// RateSource tells where the key exchange rate came from
type RateSource string

const (
	RateSourceCache     RateSource = "cache"
	RateSourcePricelist RateSource = "pricelist"
	RateSourceNone      RateSource = "none"
)

// Settings are the externally maintained inputs of a report
type Settings struct {
	KeySKU                 string
	FallbackRate           decimal.Decimal
	MaxRate                decimal.Decimal
	ExcludedCounterparties []string
	CurrencySKUs           []string
	CacheTTL               time.Duration
}

// Result wraps a report with the context it was generated in
type Result struct {
	ID          uuid.UUID
	GeneratedAt time.Time
	KeyRate     decimal.Decimal
	RateSource  RateSource
	Report      *domain.Report
}

// ReportService loads the offer log and pricing context and runs the engine
type ReportService struct {
	OfferRepo     domain.OfferRepository
	PricelistRepo domain.PricelistRepository
	PriceCache    domain.PriceCache // optional
	Engine        *pnl.Engine
	Settings      Settings
	Logger        logrus.FieldLogger
}

// NewReportService creates a new ReportService instance
func NewReportService(
	offerRepo domain.OfferRepository,
	pricelistRepo domain.PricelistRepository,
	priceCache domain.PriceCache,
	engine *pnl.Engine,
	settings Settings,
	logger logrus.FieldLogger,
) *ReportService {
	return &ReportService{
		OfferRepo:     offerRepo,
		PricelistRepo: pricelistRepo,
		PriceCache:    priceCache,
		Engine:        engine,
		Settings:      settings,
		Logger:        logger.WithField("component", "report_service"),
	}
}

// Generate builds a fresh report from the full offer history
// Logic:
//  1. Load every accepted offer (a failure here is fatal)
//  2. Resolve the key rate: cache, then pricelist, else zero so the engine
//     substitutes the fallback
//  3. Run the engine with the configured exclusion and currency sets
func (s *ReportService) Generate(ctx context.Context) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "report.Generate")
	defer span.End()

	id := uuid.New()
	log := s.Logger.WithField("report_id", id.String())

	offers, err := s.OfferRepo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "offer log unavailable")
		log.WithError(err).Error("failed to load offers")
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}

	rate, source := s.ResolveKeyRate(ctx)

	report, err := s.Engine.ComputeLog(offers, pnl.Options{
		ExchangeRate:           rate,
		FallbackRate:           s.Settings.FallbackRate,
		MaxRate:                s.Settings.MaxRate,
		ExcludedCounterparties: s.Settings.ExcludedCounterparties,
		CurrencySKUs:           s.Settings.CurrencySKUs,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("pnl.records", len(offers.Records)),
		attribute.Int("pnl.rejected", len(offers.Rejected)),
		attribute.Int("pnl.points", len(report.Points)),
		attribute.Int("pnl.items", len(report.PerItem)),
		attribute.String("pnl.rate_source", string(source)),
		attribute.Bool("pnl.degraded_pricing", report.Diagnostics.DegradedPricing),
	)
	log.WithFields(logrus.Fields{
		"rate":             report.Diagnostics.ExchangeRate,
		"rate_source":      source,
		"dropped_records":  report.Diagnostics.DroppedRecords,
		"excluded_trades":  report.Diagnostics.ExcludedTrades,
		"skipped_entries":  report.Diagnostics.SkippedEntries,
		"unresolved_value": report.Diagnostics.UnresolvedValues,
	}).Info("report generated")

	return &Result{
		ID:          id,
		GeneratedAt: time.Now().UTC(),
		KeyRate:     rate,
		RateSource:  source,
		Report:      report,
	}, nil
}

// ResolveKeyRate returns the key's sell price in refined metal.
// Returns zero with RateSourceNone when no usable price exists.
func (s *ReportService) ResolveKeyRate(ctx context.Context) (decimal.Decimal, RateSource) {
	log := s.Logger.WithField("sku", s.Settings.KeySKU)

	if s.PriceCache != nil {
		rate, err := s.PriceCache.GetKeyRate(ctx, s.Settings.KeySKU)
		switch {
		case err == nil && rate.IsPositive():
			return rate, RateSourceCache
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			log.WithError(err).Warn("key rate cache unavailable")
		}
	}

	entry, err := s.PricelistRepo.GetLatest(ctx, s.Settings.KeySKU)
	if err != nil {
		log.WithError(err).Warn("key price unavailable")
		return decimal.Zero, RateSourceNone
	}

	rate, err := entry.MetalSellPrice()
	if err != nil {
		log.WithError(err).Warn("key price unusable")
		return decimal.Zero, RateSourceNone
	}

	if s.PriceCache != nil && rate.IsPositive() {
		if err := s.PriceCache.SetKeyRate(ctx, s.Settings.KeySKU, rate, s.Settings.CacheTTL); err != nil {
			log.WithError(err).Warn("failed to cache key rate")
		}
	}

	return rate, RateSourcePricelist
}
