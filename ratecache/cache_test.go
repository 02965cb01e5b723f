package ratecache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/logging"
	"github.com/warp/deposit-engine/ratecache"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeSlabs struct {
	slabs []deposit.InterestRate
	err   error
	calls int
}

func (f *fakeSlabs) InterestRates(_ context.Context, _ string) ([]deposit.InterestRate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.slabs, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestCache(t *testing.T, src *fakeSlabs) (*ratecache.Cache, *clock, *ratecache.MemoryStore) {
	t.Helper()
	clk := &clock{t: time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)}
	store := ratecache.NewMemoryStore()
	c := ratecache.New(src, store,
		ratecache.WithClock(clk.Now),
		ratecache.WithLogger(logging.Discard()))
	return c, clk, store
}

// =============================================================================
// BASE RATE TESTS
// =============================================================================

func TestBaseRate_Miss_FetchesFirstSlab(t *testing.T) {
	// GIVEN: An empty cache and a provider with two slabs
	// WHEN: The base rate is requested
	// THEN: The first slab's cumulative rate is returned and stored

	src := &fakeSlabs{slabs: []deposit.InterestRate{
		{RateCode: "INT12M001", RateCumulative: dec("7.6")},
		{RateCode: "INT24M001", RateCumulative: dec("7.7")},
	}}
	c, clk, store := newTestCache(t, src)
	ctx := context.Background()

	rate, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("7.6")))

	entry, err := store.GetEntry(ctx, "FD001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, clk.Now(), entry.LastUpdated)
}

func TestBaseRate_Fresh_DoesNotRefetch(t *testing.T) {
	src := &fakeSlabs{slabs: []deposit.InterestRate{{RateCumulative: dec("7.6")}}}
	c, clk, _ := newTestCache(t, src)
	ctx := context.Background()

	_, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)

	clk.Advance(23 * time.Hour)
	src.slabs = []deposit.InterestRate{{RateCumulative: dec("9.9")}}

	rate, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("7.6")), "cached value inside the TTL")
	assert.Equal(t, 1, src.calls)
}

func TestBaseRate_Stale_Refetches(t *testing.T) {
	// GIVEN: An entry older than 24 hours
	// WHEN: The base rate is requested
	// THEN: The provider is called again and the new rate stored

	src := &fakeSlabs{slabs: []deposit.InterestRate{{RateCumulative: dec("7.6")}}}
	c, clk, store := newTestCache(t, src)
	ctx := context.Background()

	_, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	src.slabs = []deposit.InterestRate{{RateCumulative: dec("8.1")}}

	rate, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("8.1")))
	assert.Equal(t, 2, src.calls)

	entry, _ := store.GetEntry(ctx, "FD001")
	require.NotNil(t, entry)
	assert.Equal(t, clk.Now(), entry.LastUpdated)
}

func TestBaseRate_NoSlabs_CachesZero(t *testing.T) {
	src := &fakeSlabs{}
	c, _, store := newTestCache(t, src)
	ctx := context.Background()

	rate, err := c.BaseRate(ctx, "FD009")
	require.NoError(t, err)
	assert.True(t, rate.IsZero())

	entry, _ := store.GetEntry(ctx, "FD009")
	require.NotNil(t, entry)
	assert.True(t, entry.BaseRate.IsZero())
}

func TestBaseRate_ProviderDown_ServesStale(t *testing.T) {
	// GIVEN: A stale entry and a failing provider
	// WHEN: The base rate is requested
	// THEN: The stale rate is returned without error

	src := &fakeSlabs{slabs: []deposit.InterestRate{{RateCumulative: dec("7.6")}}}
	c, clk, _ := newTestCache(t, src)
	ctx := context.Background()

	_, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	src.err = errors.New("connection refused")

	rate, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("7.6")))
}

func TestBaseRate_ProviderDown_NoEntry_Errors(t *testing.T) {
	src := &fakeSlabs{err: errors.New("connection refused")}
	c, _, _ := newTestCache(t, src)

	_, err := c.BaseRate(context.Background(), "FD001")
	require.Error(t, err)
	assert.ErrorIs(t, err, deposit.ErrProviderUnavailable)
}

// =============================================================================
// REFRESH TESTS
// =============================================================================

func TestRefresh_OverwritesFreshEntry(t *testing.T) {
	src := &fakeSlabs{slabs: []deposit.InterestRate{{RateCumulative: dec("7.6")}}}
	c, clk, _ := newTestCache(t, src)
	ctx := context.Background()

	_, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	src.slabs = []deposit.InterestRate{{RateCumulative: dec("7.9")}}

	rate, err := c.Refresh(ctx, "FD001")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("7.9")))

	entry, err := c.Entry(ctx, "FD001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.BaseRate.Equal(decimal.RequireFromString("7.9")))
	assert.True(t, c.Fresh(*entry))
}

func TestRefresh_ProviderDown_Propagates(t *testing.T) {
	src := &fakeSlabs{err: errors.New("timeout")}
	c, _, _ := newTestCache(t, src)

	_, err := c.Refresh(context.Background(), "FD001")
	assert.ErrorIs(t, err, deposit.ErrProviderUnavailable)
}

func TestWithTTL_ShortensFreshness(t *testing.T) {
	src := &fakeSlabs{slabs: []deposit.InterestRate{{RateCumulative: dec("7.6")}}}
	clk := &clock{t: time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)}
	c := ratecache.New(src, ratecache.NewMemoryStore(),
		ratecache.WithClock(clk.Now),
		ratecache.WithTTL(time.Hour),
		ratecache.WithLogger(logging.Discard()))
	ctx := context.Background()

	_, err := c.BaseRate(ctx, "FD001")
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)
	_, err = c.BaseRate(ctx, "FD001")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, c.TTL())
	assert.Equal(t, 2, src.calls)
}
