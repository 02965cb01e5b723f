/*
handlers.go - HTTP API handlers for the deposit calculator

PURPOSE:
  Exposes the deposit engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calculations:
    POST   /api/fd/calculate                    Compute and store a calculation
    GET    /api/fd/calculations                 Recent calculations (?limit=N)
    GET    /api/fd/calculations/{id}            Stored calculation by calc id

  Reference data:
    GET    /api/fd/categories                   Benefit categories (live from rules)
    GET    /api/fd/currencies                   Supported currencies
    GET    /api/fd/compounding-options          Compounding frequencies

  Rate cache:
    GET    /api/fd/rate-cache/{productCode}     Cached base rate
    POST   /api/fd/rate-cache/{productCode}/refresh
    POST   /api/fd/rate-cache/refresh?productCode=FD001

  Admin:
    GET    /api/admin/categories                Categories stored by sync
    POST   /api/admin/sync-product-rules/{productCode}

  Scenarios (server.enable_scenarios):
    GET    /api/scenarios                       Demo scenarios
    GET    /api/scenarios/current               Loaded scenario
    POST   /api/scenarios/load                  Reset and load a scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert to domain types (dto.go)
  3. Call domain logic (deposit.Calculator, CategoryService, ratecache.Cache)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, amount outside product limits
  - 404: Calculation not found
  - 502: Pricing provider unavailable (explicit refresh / sync)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scenarios.go: Demo scenario loaders
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ratecache"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Calculator *deposit.Calculator
	Categories *deposit.CategoryService
	RateCache  *ratecache.Cache
	Database   Pinger
	Resetter   Resetter // Optional, needed by scenarios

	// DefaultProduct is used by endpoints whose product code is optional.
	DefaultProduct string

	logger *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. db may be nil; when it can also reset
// itself it backs the scenario loader.
func NewHandler(calc *deposit.Calculator, categories *deposit.CategoryService, cache *ratecache.Cache, db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		Calculator:     calc,
		Categories:     categories,
		RateCache:      cache,
		Database:       db,
		DefaultProduct: deposit.DefaultProductCode,
		logger:         logger.With("component", "api"),
	}
	if r, ok := db.(Resetter); ok {
		h.Resetter = r
	}
	return h
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate computes, stores and returns a calculation.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Calculator.Calculate(r.Context(), req.ToDomain())
	if err != nil {
		h.writeDomainError(w, r, "Calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toCalculationDTO(result))
}

// GetCalculation returns a stored calculation by calc id.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid calculation id", err)
		return
	}

	result, err := h.Calculator.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load calculation", err)
		return
	}

	writeJSON(w, http.StatusOK, toCalculationDTO(result))
}

// ListCalculations returns the most recent calculations.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	results, err := h.Calculator.History(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationDTO, len(results))
	for i, res := range results {
		dtos[i] = toCalculationDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ListCategories returns the benefit categories of a product, read live from
// its rules. ?productCode= overrides the default product.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	productCode := h.productParam(r)

	categories, err := h.Categories.Benefits(r.Context(), productCode)
	if err != nil {
		h.writeDomainError(w, r, "Failed to load categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListCurrencies returns the supported currencies.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies := deposit.SupportedCurrencies()
	dtos := make([]CurrencyDTO, len(currencies))
	for i, c := range currencies {
		dtos[i] = CurrencyDTO{Code: c.Code, Name: c.Name, DecimalPlaces: c.DecimalPlaces}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListCompoundingOptions returns the supported compounding frequencies.
func (h *Handler) ListCompoundingOptions(w http.ResponseWriter, r *http.Request) {
	dtos := make([]CompoundingOptionDTO, 0, len(deposit.CompoundingOptions))
	for i := len(deposit.CompoundingOptions) - 1; i >= 0; i-- {
		f := deposit.CompoundingOptions[i]
		n, _ := f.PeriodsPerYear()
		dtos = append(dtos, CompoundingOptionDTO{Value: string(f), Label: f.Label(), PeriodsPerYear: n})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RATE CACHE HANDLERS
// =============================================================================

// GetCachedRate returns the cached base rate without refetching.
func (h *Handler) GetCachedRate(w http.ResponseWriter, r *http.Request) {
	productCode := chi.URLParam(r, "productCode")

	entry, err := h.RateCache.Entry(r.Context(), productCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read rate cache", err)
		return
	}

	fresh := entry != nil && h.RateCache.Fresh(*entry)
	writeJSON(w, http.StatusOK, toRateCacheDTO(productCode, entry, fresh))
}

// RefreshRate refetches a product's base rate. The product code comes from
// the path or from ?productCode=.
func (h *Handler) RefreshRate(w http.ResponseWriter, r *http.Request) {
	productCode := chi.URLParam(r, "productCode")
	if productCode == "" {
		productCode = strings.TrimSpace(r.URL.Query().Get("productCode"))
	}
	if productCode == "" {
		writeError(w, http.StatusBadRequest, "productCode is required", nil)
		return
	}

	rate, err := h.RateCache.Refresh(r.Context(), productCode)
	if err != nil {
		h.writeDomainError(w, r, "Failed to refresh rate cache", err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		ProductCode: productCode,
		BaseRate:    json.Number(rate.String()),
		Message:     "Refreshed " + productCode,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ListStoredCategories returns the categories persisted by rule syncs.
func (h *Handler) ListStoredCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Categories.Stored(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = toCategoryDTO(c, true)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SyncProductRules mirrors a product's benefit rules into the category store.
func (h *Handler) SyncProductRules(w http.ResponseWriter, r *http.Request) {
	productCode := chi.URLParam(r, "productCode")

	summary, err := h.Categories.Sync(r.Context(), productCode)
	if err != nil {
		h.writeDomainError(w, r, "Failed to sync product rules", err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Status:      "success",
		Message:     "Successfully synced product rules for " + productCode,
		ProductCode: summary.ProductCode,
		Fetched:     summary.Fetched,
		Created:     summary.Created,
		Updated:     summary.Updated,
		Skipped:     summary.Skipped,
	})
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.Database != nil {
		if err := h.Database.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) productParam(r *http.Request) string {
	if code := strings.TrimSpace(r.URL.Query().Get("productCode")); code != "" {
		return code
	}
	return h.DefaultProduct
}

// writeDomainError maps deposit errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var amountErr *deposit.AmountOutOfRangeError
	var validationErr *deposit.ValidationError

	switch {
	case errors.As(err, &amountErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: message,
			Code:  "amount_out_of_range",
			Details: map[string]string{
				"message": amountErr.Error(),
				"min":     amountErr.Min.String(),
				"max":     amountErr.Max.String(),
			},
		})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: message,
			Code:  "validation_error",
			Details: map[string]string{
				"field":   validationErr.Field,
				"message": validationErr.Message,
			},
		})
	case deposit.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: "invalid_request", Details: err.Error()})
	case deposit.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: message, Code: "not_found", Details: err.Error()})
	case errors.Is(err, deposit.ErrProviderUnavailable):
		h.logger.Warn("pricing provider unavailable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: message, Code: "provider_unavailable", Details: err.Error()})
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, message, fmt.Errorf("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
