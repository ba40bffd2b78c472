package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScrapPerRefined is the number of minor units (scrap) in one major unit
// (refined metal).
const ScrapPerRefined = 9

var scrapPerRefined = decimal.NewFromInt(ScrapPerRefined)

// Value is an amount recorded on an offer. It is either a keys+metal pair
// or a total in scrap. Invalid is set by decoders when a field was present
// but not numeric.
type Value struct {
	Keys    decimal.NullDecimal // secondary unit count
	Metal   decimal.NullDecimal // major unit count (refined)
	Scrap   decimal.NullDecimal // total in minor units
	Invalid bool
}

// KeysMetal builds a keys+metal value
func KeysMetal(keys, metal decimal.Decimal) Value {
	return Value{
		Keys:  decimal.NewNullDecimal(keys),
		Metal: decimal.NewNullDecimal(metal),
	}
}

// ScrapTotal builds a value from a scrap total
func ScrapTotal(scrap decimal.Decimal) Value {
	return Value{Scrap: decimal.NewNullDecimal(scrap)}
}

// IsZero reports whether no form of the value is present
func (v Value) IsZero() bool {
	return !v.Invalid && !v.Keys.Valid && !v.Metal.Valid && !v.Scrap.Valid
}

// PricePair is the explicit buy/sell price the bot recorded for an item.
// Either side may be nil.
type PricePair struct {
	Buy  *Value
	Sell *Value
}

// Normalizer converts Values into a single scalar expressed in refined metal
type Normalizer struct {
	Rate     decimal.Decimal // refined per key
	Degraded bool            // true when the fallback rate was substituted
}

// NewNormalizer validates the exchange rate. A rate that is non-positive or
// above maxRate is replaced by fallback and the normalizer is marked
// degraded. A zero maxRate disables the upper bound.
func NewNormalizer(rate, fallback, maxRate decimal.Decimal) Normalizer {
	if !rate.IsPositive() || (maxRate.IsPositive() && rate.GreaterThan(maxRate)) {
		return Normalizer{Rate: fallback, Degraded: true}
	}
	return Normalizer{Rate: rate}
}

// Normalize returns the value in refined metal.
// keys+metal:  keys*rate + metal
// scrap total: scrap/9 (rate is not used)
func (n Normalizer) Normalize(v Value) (decimal.Decimal, error) {
	if v.Invalid {
		return decimal.Zero, fmt.Errorf("%w: non-numeric field", ErrUnresolvableValue)
	}

	if v.Keys.Valid || v.Metal.Valid {
		keys := decimal.Zero
		if v.Keys.Valid {
			keys = v.Keys.Decimal
		}
		metal := decimal.Zero
		if v.Metal.Valid {
			metal = v.Metal.Decimal
		}
		return keys.Mul(n.Rate).Add(metal), nil
	}

	if v.Scrap.Valid {
		return v.Scrap.Decimal.Div(scrapPerRefined), nil
	}

	return decimal.Zero, fmt.Errorf("%w: no keys, metal or scrap total", ErrUnresolvableValue)
}
