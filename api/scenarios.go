/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the calculation history with
	realistic deposits. Each scenario runs a fixed set of requests through
	the calculator so the history, rate cache and category endpoints have
	something to show.

AVAILABLE SCENARIOS:

	senior-citizen:   Cumulative deposits with the senior citizen benefit
	monthly-income:   Non-cumulative deposits paying out monthly and quarterly
	capped-benefits:  Stacked categories that hit the excess interest cap
	multi-currency:   Same deposit in INR, JPY and AED (display precision)
	short-tenure:     Day based tenures rounding up into the 12M slab

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Run each request through the calculator
 3. Return the stored results

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "monthly-income"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and requests

NOTE:

	Scenarios reset the database. Routes are only mounted when
	server.enable_scenarios is set.

SEE ALSO:
  - handlers.go: Calculate handler
  - store/sqlite/sqlite.go: Reset
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Resetter clears all stored data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`

	requests []CalculateRequest
}

// LoadScenarioResponse lists the calculations a scenario created.
type LoadScenarioResponse struct {
	Status       string           `json:"status"`
	Scenario     string           `json:"scenario"`
	Calculations []CalculationDTO `json:"calculations"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "senior-citizen",
		Name:        "Senior Citizen",
		Description: "Cumulative quarterly compounding with the senior citizen benefit",
		Category:    "cumulative",
		requests: []CalculateRequest{
			{PrincipalAmount: amount(100000), TenureValue: 12, TenureUnit: "MONTHS", Category1ID: "SENIOR"},
			{PrincipalAmount: amount(250000), TenureValue: 3, TenureUnit: "YEARS", Category1ID: "SENIOR"},
			{PrincipalAmount: amount(250000), TenureValue: 3, TenureUnit: "YEARS"},
		},
	},
	{
		ID:          "monthly-income",
		Name:        "Monthly Income",
		Description: "Non-cumulative deposits paying interest out monthly and quarterly",
		Category:    "non_cumulative",
		requests: []CalculateRequest{
			{PrincipalAmount: amount(300000), TenureValue: 24, TenureUnit: "MONTHS", Cumulative: boolPtr(false), PayoutFreq: "MONTHLY"},
			{PrincipalAmount: amount(300000), TenureValue: 24, TenureUnit: "MONTHS", Cumulative: boolPtr(false), PayoutFreq: "QUARTERLY"},
			{PrincipalAmount: amount(300000), TenureValue: 24, TenureUnit: "MONTHS", Cumulative: boolPtr(false), PayoutFreq: "YEARLY"},
		},
	},
	{
		ID:          "capped-benefits",
		Name:        "Capped Benefits",
		Description: "Platinum employee whose combined benefits exceed the excess interest cap",
		Category:    "benefits",
		requests: []CalculateRequest{
			{PrincipalAmount: amount(500000), TenureValue: 5, TenureUnit: "YEARS", Category1ID: "PLATINUM", Category2ID: "EMPLOYEE"},
			{PrincipalAmount: amount(500000), TenureValue: 5, TenureUnit: "YEARS", Category1ID: "SILVER", Category2ID: "DIGI_YOUTH"},
		},
	},
	{
		ID:          "multi-currency",
		Name:        "Multi-Currency",
		Description: "The same deposit displayed with INR, JPY and AED precision",
		Category:    "currency",
		requests: []CalculateRequest{
			{CurrencyCode: "INR", PrincipalAmount: amount(150000), TenureValue: 18, TenureUnit: "MONTHS", CompoundingFrequency: "MONTHLY"},
			{CurrencyCode: "JPY", PrincipalAmount: amount(150000), TenureValue: 18, TenureUnit: "MONTHS", CompoundingFrequency: "MONTHLY"},
			{CurrencyCode: "AED", PrincipalAmount: amount(150000), TenureValue: 18, TenureUnit: "MONTHS", CompoundingFrequency: "MONTHLY"},
		},
	},
	{
		ID:          "short-tenure",
		Name:        "Short Tenure",
		Description: "Day based tenures with simple and daily compound interest",
		Category:    "cumulative",
		requests: []CalculateRequest{
			{PrincipalAmount: amount(50000), TenureValue: 90, TenureUnit: "DAYS", InterestType: "SIMPLE"},
			{PrincipalAmount: amount(50000), TenureValue: 180, TenureUnit: "DAYS", InterestType: "COMPOUND", CompoundingFrequency: "DAILY"},
		},
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the database and runs a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	scenario, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if h.Resetter == nil {
		writeError(w, http.StatusNotImplemented, "Database reset not supported", nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	if err := h.Resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	calculations, err := h.runScenario(ctx, scenario)
	if err != nil {
		h.writeDomainError(w, r, fmt.Sprintf("Failed to load scenario %s", scenario.ID), err)
		return
	}

	h.currentScenario = scenario.ID
	h.logger.Info("scenario loaded", "scenario", scenario.ID, "calculations", len(calculations))

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Status:       "loaded",
		Scenario:     scenario.ID,
		Calculations: calculations,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) runScenario(ctx context.Context, s ScenarioDTO) ([]CalculationDTO, error) {
	out := make([]CalculationDTO, 0, len(s.requests))
	for i, req := range s.requests {
		result, err := h.Calculator.Calculate(ctx, req.ToDomain())
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i+1, err)
		}
		out = append(out, toCalculationDTO(result))
	}
	return out, nil
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func boolPtr(b bool) *bool {
	return &b
}
