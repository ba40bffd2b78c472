// Package pnl reconciles a bot's offer log into realized profit and loss.
//
// The pipeline is Sanitize -> FilterCounterparties -> {Accumulate, Match} ->
// Assemble. It performs no I/O and keeps no state between calls.
package pnl

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// Options carries everything a report depends on besides the records
type Options struct {
	ExchangeRate           decimal.Decimal // refined per key, from the pricelist
	FallbackRate           decimal.Decimal
	MaxRate                decimal.Decimal // zero disables the upper bound
	ExcludedCounterparties []string
	CurrencySKUs           []string
	Fallback               FallbackPricer // nil means EvenSplit
}

// Validate checks the options that cannot be recovered per record
func (o Options) Validate() error {
	if !o.FallbackRate.IsPositive() {
		return fmt.Errorf("%w: fallback rate must be positive", domain.ErrInvalidOptions)
	}
	if o.MaxRate.IsNegative() {
		return fmt.Errorf("%w: max rate must not be negative", domain.ErrInvalidOptions)
	}
	if o.MaxRate.IsPositive() && o.FallbackRate.GreaterThan(o.MaxRate) {
		return fmt.Errorf("%w: fallback rate %s exceeds max rate %s", domain.ErrInvalidOptions, o.FallbackRate, o.MaxRate)
	}
	return nil
}

// Engine computes P&L reports
type Engine struct {
	Logger logrus.FieldLogger
}

// NewEngine creates a new Engine instance
func NewEngine(logger logrus.FieldLogger) *Engine {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &Engine{Logger: logger.WithField("component", "pnl_engine")}
}

// Compute builds a report from the full offer history.
// A nil record slice is fatal; an empty one yields an empty report. Every
// per-record problem is logged, counted in the diagnostics and recovered.
func (e *Engine) Compute(records []domain.TradeRecord, opts Options) (*domain.Report, error) {
	if records == nil {
		return nil, fmt.Errorf("%w: no offer records supplied", domain.ErrFatalInput)
	}
	return e.compute(records, nil, opts)
}

// ComputeLog builds a report from a decoded offer log. Offers the decoder
// rejected are counted as dropped records next to those the sanitizer drops.
func (e *Engine) ComputeLog(offers *domain.OfferLog, opts Options) (*domain.Report, error) {
	if offers == nil {
		return nil, fmt.Errorf("%w: no offer log supplied", domain.ErrFatalInput)
	}
	records := offers.Records
	if records == nil {
		records = []domain.TradeRecord{}
	}
	return e.compute(records, offers.Rejected, opts)
}

func (e *Engine) compute(records []domain.TradeRecord, rejected []Rejection, opts Options) (*domain.Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var diag domain.Diagnostics

	normalizer := domain.NewNormalizer(opts.ExchangeRate, opts.FallbackRate, opts.MaxRate)
	diag.ExchangeRate = normalizer.Rate.String()
	if normalizer.Degraded {
		diag.DegradedPricing = true
		msg := fmt.Sprintf("exchange rate %s is implausible, using fallback %s", opts.ExchangeRate, opts.FallbackRate)
		diag.Warnings = append(diag.Warnings, msg)
		e.Logger.WithFields(logrus.Fields{
			"rate":     opts.ExchangeRate.String(),
			"fallback": opts.FallbackRate.String(),
		}).Warn("degraded pricing")
	}

	sanitized := Sanitize(records)
	dropped := append(append([]Rejection{}, rejected...), sanitized.Dropped...)
	diag.DroppedRecords = len(dropped)
	diag.Warnings = append(diag.Warnings, e.warn("dropped record", dropped)...)

	trades, excluded := FilterCounterparties(sanitized.Trades, NewSet(opts.ExcludedCounterparties))
	diag.ExcludedTrades = excluded
	if excluded > 0 {
		e.Logger.WithField("count", excluded).Debug("excluded counterparty trades")
	}

	ledger := Accumulate(trades, normalizer)
	diag.UnresolvedValues = len(ledger.Unresolved)
	diag.Warnings = append(diag.Warnings, e.warn("unresolved value", ledger.Unresolved)...)

	fallback := opts.Fallback
	if fallback == nil {
		fallback = EvenSplit
	}
	matcher := Matcher{
		CurrencySKUs: NewSet(opts.CurrencySKUs),
		Fallback:     fallback,
	}
	match := matcher.Match(trades, normalizer)
	diag.SkippedEntries = len(match.Skipped)
	diag.Warnings = append(diag.Warnings, e.warn("skipped entry", match.Skipped)...)
	diag.UnresolvedValues += len(match.Unresolved)
	diag.Warnings = append(diag.Warnings, e.warn("unresolved price", match.Unresolved)...)

	report := Assemble(ledger, match, diag)

	e.Logger.WithFields(logrus.Fields{
		"records":           len(records) + len(rejected),
		"trades":            len(trades),
		"items":             len(report.PerItem),
		"cumulative_profit": report.CumulativeProfit.String(),
	}).Info("report computed")

	return report, nil
}

func (e *Engine) warn(kind string, rejections []Rejection) []string {
	msgs := make([]string, 0, len(rejections))
	for _, r := range rejections {
		e.Logger.WithField("offer_id", r.OfferID).WithError(r.Err).Warn(kind)
		msgs = append(msgs, fmt.Sprintf("%s %s: %v", kind, r.OfferID, r.Err))
	}
	return msgs
}
