package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceEntry represents a pricelist history entry in the domain layer
// One entry is the bot's buy/sell price for a SKU at a point in time
type PriceEntry struct {
	ID   uuid.UUID
	SKU  string
	Buy  Value
	Sell Value
	Time time.Time
}

// MetalSellPrice returns the sell price in refined metal.
// Used for the key entry, whose price is quoted in metal only; a price that
// carries a key component cannot express the key rate and is rejected.
func (p *PriceEntry) MetalSellPrice() (decimal.Decimal, error) {
	if p.Sell.Keys.Valid && !p.Sell.Keys.Decimal.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s sell price is quoted in keys", ErrUnresolvableValue, p.SKU)
	}
	// rate is irrelevant once the key component is zero
	return Normalizer{}.Normalize(p.Sell)
}
