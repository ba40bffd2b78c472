package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerledger/pnl-backend/internal/domain"
)

func TestKeyRateKey(t *testing.T) {
	assert.Equal(t, "pnl:keyrate:5021;6", keyRateKey("5021;6"))
}

// Runs against a live server when PNL_TEST_REDIS_ADDR is set.
func TestKeyRateCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("PNL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PNL_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := New(ctx, ClientConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	cache := NewKeyRateCache(client)
	sku := "test-" + time.Now().Format("150405.000000")

	_, err = cache.GetKeyRate(ctx, sku)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, cache.SetKeyRate(ctx, sku, decimal.RequireFromString("55.11"), time.Minute))
	rate, err := cache.GetKeyRate(ctx, sku)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("55.11").Equal(rate))
}
