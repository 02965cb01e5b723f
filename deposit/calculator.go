/*
calculator.go - Calculation orchestration

PURPOSE:
  Drives a request through the engine and records the outcome:

    1. Apply defaults (product FD001, currency INR) and validate structure
    2. Fill interest type / compounding frequency from product details
    3. Check the principal against the product's MIN / MAX rules
    4. Resolve the effective rate (resolver.go)
    5. Compute maturity, APY and payout (engine.go)
    6. Truncate for display (currency.go)
    7. Persist the input and result records together
    8. Return the result with its identifiers

  Steps 1-3 reject the request before any benefit lookup or write happens.

SEE ALSO:
  - resolver.go, engine.go, currency.go
  - store.go: CalculationStore
*/
package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/warp/deposit-engine/metrics"
)

// DefaultProductCode is used when a request omits the product code.
const DefaultProductCode = "FD001"

// Calculator computes and records deposit calculations.
type Calculator struct {
	provider Provider
	store    CalculationStore
	resolver *Resolver
	engine   *Engine
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the logger shared by the calculator, resolver and engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// WithMetrics records calculation and fallback counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

// WithClock overrides the clock used for maturity dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// NewCalculator wires a calculator. cache supplies fallback base rates.
func NewCalculator(provider Provider, cache BaseRateSource, store CalculationStore, opts ...Option) *Calculator {
	c := &Calculator{
		provider: provider,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = NewResolver(provider, cache, c.logger, c.metrics)
	c.engine = NewEngine(c.logger)
	c.logger = c.logger.With("component", "calculator")
	return c
}

// Resolver returns the rate resolver used by the calculator.
func (c *Calculator) Resolver() *Resolver {
	return c.resolver
}

// Calculate computes, stores and returns the outcome of req.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	req = req.Normalize()
	if req.ProductCode == "" {
		req.ProductCode = DefaultProductCode
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = DefaultCurrency
	}
	if err := req.Validate(); err != nil {
		c.metrics.CalculationFailed("validation")
		return nil, err
	}

	c.applyProductDefaults(ctx, &req)
	if req.InterestType == "" {
		c.metrics.CalculationFailed("validation")
		return nil, fmt.Errorf("%w: not in request or product %s", ErrInterestTypeRequired, req.ProductCode)
	}
	if !req.InterestType.Valid() {
		c.metrics.CalculationFailed("validation")
		return nil, &ValidationError{
			Field:   "interest_type",
			Message: fmt.Sprintf("product %s has unsupported interest type %q", req.ProductCode, req.InterestType),
		}
	}

	if err := c.resolver.Rules().ValidateAmount(ctx, req.ProductCode, req.Principal); err != nil {
		c.metrics.CalculationFailed("amount_limits")
		return nil, err
	}

	rate := c.resolver.ResolveEffectiveRate(ctx, req)

	now := c.now()
	comp, err := c.engine.Compute(req, rate.Effective, now)
	if err != nil {
		c.metrics.CalculationFailed("validation")
		return nil, err
	}

	in := InputRecord{Request: req, CreatedAt: now}
	out := ResultRecord{
		MaturityValue:   *FormatAmount(&comp.MaturityValue, req.CurrencyCode),
		MaturityDate:    comp.MaturityDate,
		APY:             FormatRate(comp.APY),
		EffectiveRate:   FormatRate(rate.Effective),
		PayoutFrequency: comp.PayoutFrequency,
		PayoutAmount:    FormatAmount(comp.PayoutAmount, req.CurrencyCode),
		CreatedAt:       now,
	}

	calcID, resultID, err := c.store.SaveCalculation(ctx, in, out)
	if err != nil {
		c.metrics.CalculationFailed("storage")
		return nil, fmt.Errorf("save calculation: %w", err)
	}
	in.ID = calcID
	out.ID = resultID
	out.InputID = calcID

	c.metrics.ObserveCalculation(req.Cumulative, string(req.InterestType), time.Since(started))
	c.logger.Info("calculation completed",
		"calc_id", calcID,
		"product_code", req.ProductCode,
		"base_rate", rate.Base.String(),
		"effective_rate", out.EffectiveRate.String(),
		"maturity_value", out.MaturityValue.String())

	return ToResult(in, out), nil
}

// Get returns a previously computed result.
func (c *Calculator) Get(ctx context.Context, calcID int64) (*Result, error) {
	in, out, err := c.store.GetCalculation(ctx, calcID)
	if err != nil {
		return nil, fmt.Errorf("load calculation %d: %w", calcID, err)
	}
	if in == nil || out == nil {
		return nil, fmt.Errorf("%w: %d", ErrCalculationNotFound, calcID)
	}
	return ToResult(*in, *out), nil
}

// History returns the most recent results, newest first.
func (c *Calculator) History(ctx context.Context, limit int) ([]*Result, error) {
	records, err := c.store.ListCalculations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	results := make([]*Result, len(records))
	for i, rec := range records {
		results[i] = ToResult(rec.Input, rec.Result)
	}
	return results, nil
}

// applyProductDefaults fills the interest type and compounding frequency
// from the product when the request leaves them empty. A provider failure
// leaves the request unchanged.
func (c *Calculator) applyProductDefaults(ctx context.Context, req *Request) {
	if req.InterestType != "" && req.CompoundingFrequency != "" {
		return
	}
	details, err := c.provider.ProductDetails(ctx, req.ProductCode)
	if err != nil {
		c.metrics.Fallback("product")
		c.logger.Warn("product details unavailable", "product_code", req.ProductCode, "error", err)
		return
	}
	if details == nil {
		c.logger.Warn("product not found", "product_code", req.ProductCode)
		return
	}
	if req.InterestType == "" {
		req.InterestType = InterestType(normalizeCode(details.InterestType))
	}
	if req.CompoundingFrequency == "" {
		req.CompoundingFrequency = Frequency(normalizeCode(details.CompoundingFrequency))
	}
	c.logger.Debug("applied product defaults",
		"product_code", req.ProductCode,
		"interest_type", req.InterestType,
		"compounding_frequency", req.CompoundingFrequency)
}
