/*
scheduler.go - Automated rate cache refresh

PURPOSE:
  Periodically refetches the base rate of each configured product so that
  calculations falling back to the cache see current rates without waiting
  for the TTL to expire on a request path.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Refreshes immediately on start, then on every tick
  - A failing product is logged and retried on the next tick; the cache
    keeps serving its previous entry in the meantime
  - Optionally re-syncs benefit categories on the same cadence

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)
  - Products: Product codes to refresh
  - Categories: Set when rate_cache.sync_categories is on

USAGE:
  scheduler := NewRateRefreshScheduler(cache, []string{"FD001"}, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RefreshRate endpoint (manual refresh)
  - ratecache/cache.go: Refresh
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ratecache"
)

// RunSummary reports one refresh pass.
type RunSummary struct {
	Refreshed int
	Failed    int
	Synced    int
}

// RateRefreshScheduler refreshes cached base rates on an interval.
type RateRefreshScheduler struct {
	Cache         *ratecache.Cache
	Categories    *deposit.CategoryService // Optional
	Products      []string
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRateRefreshScheduler creates a new scheduler.
func NewRateRefreshScheduler(cache *ratecache.Cache, products []string, logger *slog.Logger) *RateRefreshScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateRefreshScheduler{
		Cache:         cache,
		Products:      products,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler.
func (s *RateRefreshScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.logger.Info("rate refresh scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.stop = make(chan bool)
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run(s.ticker.C, s.stop)

	s.logger.Info("rate refresh scheduler started",
		"interval", s.CheckInterval.String(),
		"products", s.Products)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (s *RateRefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("rate refresh scheduler stopped")
	}
}

func (s *RateRefreshScheduler) run(tick <-chan time.Time, stop <-chan bool) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-tick:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one refresh pass synchronously.
func (s *RateRefreshScheduler) RunNow(ctx context.Context) RunSummary {
	var summary RunSummary

	for _, code := range s.Products {
		rate, err := s.Cache.Refresh(ctx, code)
		if err != nil {
			summary.Failed++
			s.logger.Warn("scheduled rate refresh failed", "product_code", code, "error", err)
			continue
		}
		summary.Refreshed++
		s.logger.Debug("scheduled rate refresh", "product_code", code, "base_rate", rate.String())

		if s.Categories == nil {
			continue
		}
		if _, err := s.Categories.Sync(ctx, code); err != nil {
			s.logger.Warn("scheduled category sync failed", "product_code", code, "error", err)
			continue
		}
		summary.Synced++
	}

	if summary.Refreshed > 0 || summary.Failed > 0 {
		s.logger.Info("rate refresh pass completed",
			"refreshed", summary.Refreshed,
			"failed", summary.Failed,
			"synced", summary.Synced)
	}
	return summary
}
