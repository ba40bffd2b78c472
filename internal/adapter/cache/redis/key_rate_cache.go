package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// KeyRateCache implements domain.PriceCache with plain string keys
// "pnl:keyrate:{sku}" holding the rate in refined metal.
type KeyRateCache struct {
	rdb redis.Cmdable
}

// NewKeyRateCache creates a KeyRateCache backed by the given Client.
func NewKeyRateCache(c *Client) *KeyRateCache {
	return &KeyRateCache{rdb: c.rdb}
}

func keyRateKey(sku string) string {
	return "pnl:keyrate:" + sku
}

// GetKeyRate returns domain.ErrNotFound on a miss.
func (c *KeyRateCache) GetKeyRate(ctx context.Context, sku string) (decimal.Decimal, error) {
	val, err := c.rdb.Get(ctx, keyRateKey(sku)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: get key rate %s: %w", sku, err)
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: parse key rate %s: %w", sku, err)
	}
	return rate, nil
}

// SetKeyRate stores the rate with the given TTL.
func (c *KeyRateCache) SetKeyRate(ctx context.Context, sku string, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, keyRateKey(sku), rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis: set key rate %s: %w", sku, err)
	}
	return nil
}
