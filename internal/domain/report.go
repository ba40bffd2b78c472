package domain

import "github.com/shopspring/decimal"

// LedgerPoint is one sample of the cumulative profit series
type LedgerPoint struct {
	Timestamp        string          `json:"timestamp"`
	CumulativeProfit decimal.Decimal `json:"cumulativeProfit"`
}

// ItemSummary is the FIFO result for a single SKU
type ItemSummary struct {
	NetQuantity       int64           `json:"netQuantity"`
	TotalAcquired     int64           `json:"totalAcquired"`
	TotalDisposed     int64           `json:"totalDisposed"`
	MatchedQuantity   int64           `json:"matchedQuantity"`
	UnmatchedDisposed int64           `json:"unmatchedDisposed"`
	RealizedProfit    decimal.Decimal `json:"realizedProfit"`
	AvgAcquirePrice   decimal.Decimal `json:"avgAcquirePrice"`
	AvgDisposePrice   decimal.Decimal `json:"avgDisposePrice"`
}

// Diagnostics collects the recoverable problems met while building a report
type Diagnostics struct {
	DroppedRecords   int      `json:"droppedRecords"`
	ExcludedTrades   int      `json:"excludedTrades"`
	SkippedEntries   int      `json:"skippedEntries"`
	UnresolvedValues int      `json:"unresolvedValues"`
	DegradedPricing  bool     `json:"degradedPricing"`
	ExchangeRate     string   `json:"exchangeRate"`
	Warnings         []string `json:"warnings"`
}

// Report is the transient P&L result handed to the presentation layer
type Report struct {
	CumulativeProfit decimal.Decimal        `json:"cumulativeProfit"`
	Points           []LedgerPoint          `json:"points"`
	PerItem          map[string]ItemSummary `json:"perItem"`
	Diagnostics      Diagnostics            `json:"diagnostics"`
}
