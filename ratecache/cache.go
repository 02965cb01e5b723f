/*
Package ratecache keeps one base interest rate per product code.

PURPOSE:
  The resolver falls back to a product's base rate whenever a tenure slab
  cannot be used. That rate is the cumulative rate of the first slab the
  pricing provider returns, cached for a TTL (24 hours by default).

LIFECYCLE:
  - BaseRate: fresh entry -> returned as stored
              missing/stale -> fetch, store with the current time, return
  - Refresh:  always fetch and overwrite, errors propagate
  - No slabs (or a slab without a cumulative rate) stores zero

CONSISTENCY:
  Writes are last-write-wins. Two concurrent refreshes of the same product
  may interleave and either value may survive; staleness is bounded by the
  TTL only. EntryStore implementations guard their own memory safety and
  nothing more.

STORAGE:
  EntryStore is pluggable:
  - MemoryStore: process local map
  - RedisStore:  shared between replicas
  - sqlite.Store: survives restarts

SEE ALSO:
  - deposit/resolver.go: The only consumer of BaseRate
  - api/scheduler.go: Periodic Refresh
*/
package ratecache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/metrics"
)

// DefaultTTL is how long a cached base rate stays fresh.
const DefaultTTL = 24 * time.Hour

// Entry is the cached base rate of one product.
type Entry struct {
	ProductCode string          `json:"product_code"`
	BaseRate    decimal.Decimal `json:"base_rate"`
	LastUpdated time.Time       `json:"last_updated"`
}

// EntryStore persists cache entries.
type EntryStore interface {
	// GetEntry returns the entry for productCode, or nil if none is stored.
	GetEntry(ctx context.Context, productCode string) (*Entry, error)

	// PutEntry creates or overwrites the entry for e.ProductCode.
	PutEntry(ctx context.Context, e Entry) error
}

// SlabSource lists a product's rate slabs. deposit.Provider satisfies it.
type SlabSource interface {
	InterestRates(ctx context.Context, productCode string) ([]deposit.InterestRate, error)
}

// Cache is a TTL-gated base rate cache.
type Cache struct {
	source  SlabSource
	store   EntryStore
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a cache reading slabs from source and storing entries in store.
func New(source SlabSource, store EntryStore, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "ratecache")
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// BaseRate returns the cached base rate, refetching it when missing or older
// than the TTL. If the refetch fails and a stale entry exists, the stale rate
// is returned.
func (c *Cache) BaseRate(ctx context.Context, productCode string) (decimal.Decimal, error) {
	entry, err := c.store.GetEntry(ctx, productCode)
	if err != nil {
		c.logger.Warn("rate cache read failed, refetching", "product_code", productCode, "error", err)
		entry = nil
	}

	if entry != nil && c.fresh(*entry) {
		c.metrics.CacheLookup("hit")
		return entry.BaseRate, nil
	}

	if entry == nil {
		c.metrics.CacheLookup("miss")
	} else {
		c.metrics.CacheLookup("stale")
	}

	rate, err := c.fetch(ctx, productCode)
	if err != nil {
		if entry != nil {
			c.logger.Warn("rate refetch failed, serving stale entry",
				"product_code", productCode,
				"last_updated", entry.LastUpdated,
				"error", err)
			return entry.BaseRate, nil
		}
		return decimal.Zero, err
	}

	if err := c.store.PutEntry(ctx, Entry{ProductCode: productCode, BaseRate: rate, LastUpdated: c.now()}); err != nil {
		c.logger.Warn("rate cache write failed", "product_code", productCode, "error", err)
	}
	return rate, nil
}

// Refresh refetches and overwrites the entry regardless of its age.
func (c *Cache) Refresh(ctx context.Context, productCode string) (decimal.Decimal, error) {
	c.metrics.CacheLookup("refresh")

	rate, err := c.fetch(ctx, productCode)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.store.PutEntry(ctx, Entry{ProductCode: productCode, BaseRate: rate, LastUpdated: c.now()}); err != nil {
		return decimal.Zero, fmt.Errorf("store base rate for %s: %w", productCode, err)
	}
	c.logger.Info("base rate refreshed", "product_code", productCode, "base_rate", rate.String())
	return rate, nil
}

// Entry returns the stored entry without refetching, or nil.
func (c *Cache) Entry(ctx context.Context, productCode string) (*Entry, error) {
	return c.store.GetEntry(ctx, productCode)
}

// Fresh reports whether e is within the TTL.
func (c *Cache) Fresh(e Entry) bool {
	return c.fresh(e)
}

func (c *Cache) fresh(e Entry) bool {
	return !c.now().After(e.LastUpdated.Add(c.ttl))
}

// fetch takes the cumulative rate of the first slab, or zero.
func (c *Cache) fetch(ctx context.Context, productCode string) (decimal.Decimal, error) {
	slabs, err := c.source.InterestRates(ctx, productCode)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: interest rates for %s: %v", deposit.ErrProviderUnavailable, productCode, err)
	}
	if len(slabs) == 0 || slabs[0].RateCumulative == nil {
		c.logger.Warn("no usable rate slab, caching zero", "product_code", productCode, "slabs", len(slabs))
		return decimal.Zero, nil
	}
	return *slabs[0].RateCumulative, nil
}
