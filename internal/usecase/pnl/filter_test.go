package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/offerledger/pnl-backend/internal/domain"
)

func TestFilterCounterparties(t *testing.T) {
	trades := []domain.SanitizedTrade{
		{TradeRecord: domain.TradeRecord{ID: "1", CounterpartyID: "owner"}},
		{TradeRecord: domain.TradeRecord{ID: "2", CounterpartyID: "stranger"}},
		{TradeRecord: domain.TradeRecord{ID: "3", CounterpartyID: "owner"}},
	}

	tests := []struct {
		name         string
		excluded     []string
		wantIDs      []string
		wantExcluded int
	}{
		{
			name:         "Excluded partner is removed",
			excluded:     []string{"owner"},
			wantIDs:      []string{"2"},
			wantExcluded: 2,
		},
		{
			name:         "Empty set is a no-op",
			excluded:     nil,
			wantIDs:      []string{"1", "2", "3"},
			wantExcluded: 0,
		},
		{
			name:         "Empty string is ignored",
			excluded:     []string{""},
			wantIDs:      []string{"1", "2", "3"},
			wantExcluded: 0,
		},
		{
			name:         "Unknown partner removes nothing",
			excluded:     []string{"nobody"},
			wantIDs:      []string{"1", "2", "3"},
			wantExcluded: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, excluded := FilterCounterparties(trades, NewSet(tt.excluded))
			assert.Equal(t, tt.wantIDs, ids(kept))
			assert.Equal(t, tt.wantExcluded, excluded)
		})
	}
}
