package pnl

import (
	"github.com/shopspring/decimal"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// Assemble combines the ledger and matcher outputs into a Report
func Assemble(ledger LedgerResult, match MatchResult, diagnostics domain.Diagnostics) *domain.Report {
	points := ledger.Points
	if points == nil {
		points = []domain.LedgerPoint{}
	}
	perItem := match.PerItem
	if perItem == nil {
		perItem = map[string]domain.ItemSummary{}
	}
	if diagnostics.Warnings == nil {
		diagnostics.Warnings = []string{}
	}

	total := decimal.Zero
	if len(points) > 0 {
		total = points[len(points)-1].CumulativeProfit
	}

	return &domain.Report{
		CumulativeProfit: total,
		Points:           points,
		PerItem:          perItem,
		Diagnostics:      diagnostics,
	}
}
