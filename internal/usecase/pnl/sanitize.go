package pnl

import (
	"sort"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// Rejection records why a record or entry was left out of a report
type Rejection = domain.Rejection

// SanitizeResult holds the ordered trades and the records dropped on the way
type SanitizeResult struct {
	Trades  []domain.SanitizedTrade
	Dropped []Rejection
}

// Sanitize resolves every record's timestamp, drops those without a usable
// one, and returns the survivors in strictly increasing timestamp order.
// Records are sorted stably by resolved time first; a timestamp equal to or
// before its predecessor's is then advanced to predecessor+1ms.
func Sanitize(records []domain.TradeRecord) SanitizeResult {
	result := SanitizeResult{
		Trades: make([]domain.SanitizedTrade, 0, len(records)),
	}

	for _, rec := range records {
		ts, err := rec.ResolveTimestamp()
		if err != nil {
			result.Dropped = append(result.Dropped, Rejection{OfferID: rec.ID, Err: err})
			continue
		}
		result.Trades = append(result.Trades, domain.SanitizedTrade{
			TradeRecord:     rec,
			TimestampMillis: ts,
		})
	}

	sort.SliceStable(result.Trades, func(i, j int) bool {
		return result.Trades[i].TimestampMillis < result.Trades[j].TimestampMillis
	})

	for i := 1; i < len(result.Trades); i++ {
		prev := result.Trades[i-1].TimestampMillis
		if result.Trades[i].TimestampMillis <= prev {
			result.Trades[i].TimestampMillis = prev + 1
		}
	}

	return result
}
