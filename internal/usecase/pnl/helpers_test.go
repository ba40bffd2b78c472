package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/offerledger/pnl-backend/internal/domain"
)

const (
	keySKU     = "5021;6"
	refinedSKU = "5002;6"
	scrapSKU   = "5000;6"
)

var currencySKUs = []string{keySKU, refinedSKU, "5001;6", scrapSKU}

func metal(v string) domain.Value {
	return domain.KeysMetal(decimal.Zero, decimal.RequireFromString(v))
}

func metalPtr(v string) *domain.Value {
	m := metal(v)
	return &m
}

func stamp(raw string) []domain.TimestampCandidate {
	return []domain.TimestampCandidate{{Field: domain.FieldFinishTimestamp, Raw: raw}}
}

// buy records receiving qty of sku for total metal
func buy(id, ts, sku string, qty int64, total string) domain.TradeRecord {
	return domain.TradeRecord{
		ID:                  id,
		CounterpartyID:      "partner-" + id,
		TimestampCandidates: stamp(ts),
		ItemsGiven:          map[string]int64{refinedSKU: 1},
		ItemsReceived:       map[string]int64{sku: qty},
		ValueGiven:          metal(total),
		ValueReceived:       metal(total),
	}
}

// sell records giving qty of sku for total metal
func sell(id, ts, sku string, qty int64, total string) domain.TradeRecord {
	return domain.TradeRecord{
		ID:                  id,
		CounterpartyID:      "partner-" + id,
		TimestampCandidates: stamp(ts),
		ItemsGiven:          map[string]int64{sku: qty},
		ItemsReceived:       map[string]int64{refinedSKU: 1},
		ValueGiven:          metal(total),
		ValueReceived:       metal(total),
	}
}

func defaultOptions() Options {
	return Options{
		ExchangeRate: decimal.NewFromInt(60),
		FallbackRate: decimal.NewFromInt(55),
		MaxRate:      decimal.NewFromInt(1000),
		CurrencySKUs: currencySKUs,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]interface{}{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}
