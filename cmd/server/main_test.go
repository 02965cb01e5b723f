package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/api"
	"github.com/warp/deposit-engine/config"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/deposit/store"
	"github.com/warp/deposit-engine/logging"
	"github.com/warp/deposit-engine/pricing"
	"github.com/warp/deposit-engine/ratecache"
)

func TestNewScheduler(t *testing.T) {
	provider, err := pricing.LoadCatalog("../../pricing/testdata/catalog.json")
	require.NoError(t, err)
	logger := logging.Discard()
	cache := ratecache.New(provider, ratecache.NewMemoryStore(), ratecache.WithLogger(logger))
	categories := deposit.NewCategoryService(provider, store.NewMemory(), logger)

	tests := []struct {
		name    string
		cfg     config.RateCacheConfig
		enabled bool
		want    api.RunSummary
	}{
		{
			name: "refresh only",
			cfg:  config.RateCacheConfig{Products: []string{"FD001"}},
			want: api.RunSummary{Refreshed: 1},
		},
		{
			name:    "refresh and sync categories",
			cfg:     config.RateCacheConfig{Products: []string{"FD001"}, RefreshInterval: time.Hour, SyncCategories: true},
			enabled: true,
			want:    api.RunSummary{Refreshed: 1, Synced: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScheduler(tt.cfg, cache, categories, logger)

			assert.Equal(t, tt.enabled, s.Enabled)
			assert.Equal(t, tt.want, s.RunNow(context.Background()))
		})
	}
}

func TestNewEntryStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		RateCache: config.RateCacheConfig{Backend: "redis"},
		Redis:     config.RedisConfig{Addr: mr.Addr(), KeyTTL: time.Hour},
	}

	entries, closer, err := newEntryStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { closer.Close() })

	require.IsType(t, &ratecache.RedisStore{}, entries)
	require.NoError(t, entries.PutEntry(context.Background(), ratecache.Entry{ProductCode: "FD001"}))
	assert.Equal(t, time.Hour, mr.TTL("fdcalc:rate_cache:FD001"))
}
