/*
resolver.go - Base rate and category benefit resolution

PURPOSE:
  Derives the effective annual rate for a request:

    effective = base + min(benefit1 + benefit2, cap)

  The base rate comes from the tenure slab (INT<bracket><suffix>) or, when
  the slab is unusable, from the rate cache. Benefits come from category
  rules (SR001, GOLD001, ...) and the cap from MAXINT<suffix>.

DEGRADATION:
  Nothing in this file returns an error. Missing slabs, missing rate fields
  and provider failures fall back to the cached base rate. Missing benefit
  rules count as zero. A failing cache degrades the base rate to zero.
  Every fallback is logged as a warning.

SEE ALSO:
  - codes.go: Rate and rule code construction
  - rules.go: MIN / MAX / MAXINT rules
  - ratecache/cache.go: The fallback base rate
*/
package deposit

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/warp/deposit-engine/metrics"
)

// Resolver resolves base rates and category benefits.
type Resolver struct {
	provider Provider
	cache    BaseRateSource
	rules    *RuleValidator
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewResolver creates a resolver. cache supplies the fallback base rate.
func NewResolver(provider Provider, cache BaseRateSource, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		cache:    cache,
		rules:    NewRuleValidator(provider, logger, m),
		logger:   logger.With("component", "resolver"),
		metrics:  m,
	}
}

// ResolveEffectiveRate resolves the base rate for the request's tenure slab
// and adds the capped category benefits. req must be normalized and carry
// its resolved compounding frequency.
func (r *Resolver) ResolveEffectiveRate(ctx context.Context, req Request) ResolvedRate {
	suffix := ExtractProductSuffix(req.ProductCode)
	rateCode := rateCodeForRequest(req)

	base := r.ResolveBaseRate(ctx, req.ProductCode, rateCode, req.Cumulative, req.PayoutFrequency, req.CompoundingFrequency)

	extra := decimal.Zero
	for _, category := range []string{req.Category1, req.Category2} {
		if category == "" {
			continue
		}
		benefit := r.CategoryBenefit(ctx, req.ProductCode, RuleCodeFor(category, suffix))
		r.logger.Debug("category benefit", "category", category, "benefit", benefit.String())
		extra = extra.Add(benefit)
	}
	if extra.IsNegative() {
		r.logger.Warn("negative category benefits ignored", "extra", extra.String())
		extra = decimal.Zero
	}

	limit := r.rules.MaximumExcessInterest(ctx, req.ProductCode)
	if limit.IsNegative() {
		limit = decimal.Zero
	}

	resolved := ResolvedRate{
		Base:           base,
		ExtraBeforeCap: extra,
		Cap:            limit,
		Extra:          decimal.Min(extra, limit),
	}
	resolved.Effective = base.Add(resolved.Extra)

	if resolved.Capped() {
		r.metrics.Capped()
		r.logger.Info("category benefits capped",
			"product_code", req.ProductCode,
			"extra", extra.String(),
			"cap", limit.String())
	}
	return resolved
}

// ResolveBaseRate selects the rate for a slab. Cumulative deposits use the
// cumulative rate. Non-cumulative deposits use the sub-rate for payoutFreq,
// then compoundingFreq, then YEARLY.
func (r *Resolver) ResolveBaseRate(ctx context.Context, productCode, rateCode string, cumulative bool, payoutFreq, compoundingFreq Frequency) decimal.Decimal {
	slab, err := r.provider.InterestRateByCode(ctx, productCode, rateCode)
	if err != nil {
		r.logger.Warn("rate lookup failed, using cached base rate",
			"product_code", productCode, "rate_code", rateCode, "error", err)
		return r.fallbackBaseRate(ctx, productCode)
	}
	if slab == nil {
		r.logger.Warn("rate slab not found, using cached base rate",
			"product_code", productCode, "rate_code", rateCode)
		return r.fallbackBaseRate(ctx, productCode)
	}

	var rate *decimal.Decimal
	if cumulative {
		rate = slab.RateCumulative
	} else {
		freq := payoutFreq
		if freq == "" {
			freq = compoundingFreq
		}
		if freq == "" {
			freq = FrequencyYearly
		}
		rate = slab.NonCumulativeRate(freq)
	}

	if rate == nil {
		r.logger.Warn("rate slab has no rate for this mode, using cached base rate",
			"product_code", productCode, "rate_code", rateCode, "cumulative", cumulative)
		return r.fallbackBaseRate(ctx, productCode)
	}
	return *rate
}

// CategoryBenefit is the benefit percentage of a category rule, or zero.
func (r *Resolver) CategoryBenefit(ctx context.Context, productCode, ruleCode string) decimal.Decimal {
	value, ok := lookupRuleValue(ctx, r.provider, r.logger, productCode, ruleCode)
	if !ok {
		r.metrics.Fallback("benefit")
		return decimal.Zero
	}
	return value
}

// Rules exposes the product rule validator sharing this resolver's provider.
func (r *Resolver) Rules() *RuleValidator {
	return r.rules
}

func (r *Resolver) fallbackBaseRate(ctx context.Context, productCode string) decimal.Decimal {
	r.metrics.Fallback("base_rate")
	rate, err := r.cache.BaseRate(ctx, productCode)
	if err != nil {
		r.logger.Warn("cached base rate unavailable, using zero",
			"product_code", productCode, "error", err)
		return decimal.Zero
	}
	return rate
}
