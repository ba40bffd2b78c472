package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OfferRepository defines the interface for reading the bot's offer log
type OfferRepository interface {
	// List retrieves every accepted offer together with the offers that
	// could not be decoded.
	// Returns an error wrapping ErrFatalInput when the log itself is missing
	// or unparseable, and ErrUnavailable when the store cannot be read.
	List(ctx context.Context) (*OfferLog, error)
}

// PricelistRepository defines the interface for pricelist persistence operations
type PricelistRepository interface {
	// Add creates a new pricelist history entry
	Add(ctx context.Context, entry *PriceEntry) error

	// GetLatest retrieves the most recent price entry for a given SKU
	// Returns ErrNotFound when the SKU has never been priced
	GetLatest(ctx context.Context, sku string) (*PriceEntry, error)
}

// PriceCache caches the resolved key exchange rate
type PriceCache interface {
	// GetKeyRate returns ErrNotFound on a cache miss
	GetKeyRate(ctx context.Context, sku string) (decimal.Decimal, error)

	SetKeyRate(ctx context.Context, sku string, rate decimal.Decimal, ttl time.Duration) error
}
