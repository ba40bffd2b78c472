package pnl

import "github.com/offerledger/pnl-backend/internal/domain"

// FilterCounterparties removes trades made with excluded partners (bot
// owners moving inventory without an economic exchange) and returns how many
// were removed. An empty set keeps every trade.
func FilterCounterparties(trades []domain.SanitizedTrade, excluded map[string]struct{}) ([]domain.SanitizedTrade, int) {
	if len(excluded) == 0 {
		return trades, 0
	}

	kept := make([]domain.SanitizedTrade, 0, len(trades))
	for _, trade := range trades {
		if _, ok := excluded[trade.CounterpartyID]; ok {
			continue
		}
		kept = append(kept, trade)
	}

	return kept, len(trades) - len(kept)
}

// NewSet builds a lookup set, ignoring empty strings
func NewSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
