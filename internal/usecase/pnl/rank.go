package pnl

import (
	"sort"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// RankedItem is a per-item summary with its SKU attached
type RankedItem struct {
	SKU string `json:"sku"`
	domain.ItemSummary
}

// RankItems orders items by absolute realized profit, largest first, with
// SKU as tie-breaker. A positive limit truncates the result.
func RankItems(perItem map[string]domain.ItemSummary, limit int) []RankedItem {
	items := make([]RankedItem, 0, len(perItem))
	for sku, summary := range perItem {
		items = append(items, RankedItem{SKU: sku, ItemSummary: summary})
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].RealizedProfit.Abs(), items[j].RealizedProfit.Abs()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return items[i].SKU < items[j].SKU
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
