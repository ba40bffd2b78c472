package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/offerledger/pnl-backend/internal/domain"
)

func TestAssemble(t *testing.T) {
	ledger := LedgerResult{
		Total: decimal.NewFromInt(3),
		Points: []domain.LedgerPoint{
			{Timestamp: "2023-11-14T22:13:20.000Z", CumulativeProfit: decimal.NewFromInt(1)},
			{Timestamp: "2023-11-14T22:13:20.001Z", CumulativeProfit: decimal.NewFromInt(3)},
		},
	}
	match := MatchResult{PerItem: map[string]domain.ItemSummary{"a": {TotalAcquired: 1}}}

	report := Assemble(ledger, match, domain.Diagnostics{DroppedRecords: 2})

	assertDecimal(t, "3", report.CumulativeProfit)
	assert.Equal(t, ledger.Points, report.Points)
	assert.Equal(t, match.PerItem, report.PerItem)
	assert.Equal(t, 2, report.Diagnostics.DroppedRecords)
	assert.NotNil(t, report.Diagnostics.Warnings)
}
