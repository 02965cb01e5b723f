/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counters keyed by route pattern
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/fd/*      Calculations, reference data, rate cache
  /api/admin/*   Product rule sync and stored categories
  /api/scenarios Demo data (only when enabled, resets the database)
  /health        Liveness and database check
  /metrics       Prometheus exposition (when enabled)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/deposit-engine/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins  []string
	Metrics         *metrics.Metrics
	MetricsPath     string
	EnableScenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware(opts.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/fd", func(r chi.Router) {
			r.Post("/calculate", h.Calculate)
			r.Get("/calculations", h.ListCalculations)
			r.Get("/calculations/{id}", h.GetCalculation)

			r.Get("/categories", h.ListCategories)
			r.Get("/currencies", h.ListCurrencies)
			r.Get("/compounding-options", h.ListCompoundingOptions)

			r.Post("/rate-cache/refresh", h.RefreshRate)
			r.Get("/rate-cache/{productCode}", h.GetCachedRate)
			r.Post("/rate-cache/{productCode}/refresh", h.RefreshRate)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/categories", h.ListStoredCategories)
			r.Post("/sync-product-rules/{productCode}", h.SyncProductRules)
		})

		if opts.EnableScenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	r.Get("/health", h.Health)

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, opts.Metrics.Handler())
	}

	return r
}

// metricsMiddleware records request counts and latency by route pattern so
// that /calculations/{id} is one series, not one per id.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}
