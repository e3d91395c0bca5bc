package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocklens/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), AKToolsRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, AKToolsRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), SinaRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, QuoteKey("600000"), map[string]float64{"price": 10.5}, time.Minute))

	var got map[string]float64
	found, err := cache.Get(ctx, QuoteKey("600000"), &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, QuoteKey("600000")))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "quote:600000", QuoteKey("600000"))
	assert.Equal(t, "valuation:000001", ValuationKey("000001"))
}
