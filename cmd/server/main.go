/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fixed-deposit calculator server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Build the logger and metrics registry
  3. Initialize SQLite store
  4. Create the pricing provider (HTTP client or static catalog)
  5. Create the rate cache over the configured backend
  6. Wire calculator, category service and API handler
  7. Start the rate refresh scheduler (if configured)
  8. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML configuration file (optional)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (server.shutdown_timeout)
  4. Close database and cache connections
  5. Exit

EXAMPLES:
  # Run against a local pricing service
  ./server -config=config.toml

  # Run offline with the bundled catalog
  FDCALC_PRICING_MODE=static FDCALC_PRICING_CATALOG_PATH=pricing/testdata/catalog.json ./server

  # Run with in-memory database on a different port
  ./server -db=":memory:" -port=3000

ENVIRONMENT:
  Every config key can be overridden with FDCALC_<SECTION>_<KEY>,
  e.g. FDCALC_REDIS_ADDR, FDCALC_LOGGER_LEVEL.

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/warp/deposit-engine/api"
	"github.com/warp/deposit-engine/config"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/logging"
	"github.com/warp/deposit-engine/metrics"
	"github.com/warp/deposit-engine/pricing"
	"github.com/warp/deposit-engine/ratecache"
	"github.com/warp/deposit-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "TOML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, logCloser, err := logging.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	provider, err := newProvider(cfg.Pricing, logger)
	if err != nil {
		return err
	}

	entries, closeEntries, err := newEntryStore(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closeEntries.Close()

	cache := ratecache.New(provider, entries,
		ratecache.WithTTL(cfg.RateCache.TTL),
		ratecache.WithLogger(logger),
		ratecache.WithMetrics(m))

	calculator := deposit.NewCalculator(provider, cache, store,
		deposit.WithLogger(logger),
		deposit.WithMetrics(m))
	categories := deposit.NewCategoryService(provider, store, logger)

	handler := api.NewHandler(calculator, categories, cache, store, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Metrics:         m,
		MetricsPath:     cfg.Metrics.Path,
		EnableScenarios: cfg.Server.EnableScenarios,
	})

	scheduler := newScheduler(cfg.RateCache, cache, categories, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", server.Addr,
			"pricing_mode", cfg.Pricing.Mode,
			"rate_cache_backend", cfg.RateCache.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newProvider(cfg config.PricingConfig, logger *slog.Logger) (deposit.Provider, error) {
	switch cfg.Mode {
	case "static":
		p, err := pricing.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load pricing catalog: %w", err)
		}
		logger.Info("using static pricing catalog", "path", cfg.CatalogPath, "products", p.ProductCodes())
		return p, nil
	default:
		return pricing.NewClient(cfg, logger), nil
	}
}

func newScheduler(cfg config.RateCacheConfig, cache *ratecache.Cache, categories *deposit.CategoryService, logger *slog.Logger) *api.RateRefreshScheduler {
	scheduler := api.NewRateRefreshScheduler(cache, cfg.Products, logger)
	scheduler.CheckInterval = cfg.RefreshInterval
	scheduler.Enabled = cfg.RefreshInterval > 0
	if cfg.SyncCategories {
		scheduler.Categories = categories
	}
	return scheduler
}

func newEntryStore(ctx context.Context, cfg *config.Config, db *sqlite.Store) (ratecache.EntryStore, io.Closer, error) {
	switch cfg.RateCache.Backend {
	case "memory":
		return ratecache.NewMemoryStore(), nopCloser{}, nil
	case "redis":
		rs, err := ratecache.NewRedisStore(ctx, cfg.Redis.Addr,
			ratecache.WithCredentials(cfg.Redis.Password, cfg.Redis.DB),
			ratecache.WithKeyTTL(cfg.Redis.KeyTTL))
		if err != nil {
			return nil, nil, err
		}
		return rs, rs, nil
	default:
		return db, nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
