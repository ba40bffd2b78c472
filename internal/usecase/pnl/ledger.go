package pnl

import (
	"github.com/shopspring/decimal"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// LedgerResult is the cumulative profit series
type LedgerResult struct {
	Total      decimal.Decimal
	Points     []domain.LedgerPoint
	Unresolved []Rejection
}

// Accumulate walks the ordered trades and emits one point per trade with the
// running total of received minus given value. A side whose value cannot be
// normalized contributes zero.
func Accumulate(trades []domain.SanitizedTrade, n domain.Normalizer) LedgerResult {
	result := LedgerResult{
		Total:  decimal.Zero,
		Points: make([]domain.LedgerPoint, 0, len(trades)),
	}

	for _, trade := range trades {
		given, err := n.Normalize(trade.ValueGiven)
		if err != nil {
			result.Unresolved = append(result.Unresolved, Rejection{OfferID: trade.ID, Err: err})
		}
		received, err := n.Normalize(trade.ValueReceived)
		if err != nil {
			result.Unresolved = append(result.Unresolved, Rejection{OfferID: trade.ID, Err: err})
		}

		result.Total = result.Total.Add(received.Sub(given))
		result.Points = append(result.Points, domain.LedgerPoint{
			Timestamp:        trade.ISOTimestamp(),
			CumulativeProfit: result.Total,
		})
	}

	return result
}
