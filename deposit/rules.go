package deposit

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/warp/deposit-engine/metrics"
)

// Defaults used when a product rule is missing or unreadable.
var (
	DefaultMinAmount         = decimal.Zero
	DefaultMaxAmount         = decimal.NewFromInt(999999999)
	DefaultMaxExcessInterest = decimal.RequireFromString("2.00")
)

// RuleValidator reads the MIN, MAX and MAXINT rules of a product.
type RuleValidator struct {
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRuleValidator creates a validator backed by provider.
func NewRuleValidator(provider Provider, logger *slog.Logger, m *metrics.Metrics) *RuleValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleValidator{provider: provider, logger: logger.With("component", "rules"), metrics: m}
}

// ValidateAmount rejects a principal outside the product's [min, max].
func (v *RuleValidator) ValidateAmount(ctx context.Context, productCode string, amount decimal.Decimal) error {
	minAmount := v.MinimumAmount(ctx, productCode)
	maxAmount := v.MaximumAmount(ctx, productCode)

	if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		return &AmountOutOfRangeError{
			ProductCode: productCode,
			Amount:      amount,
			Min:         minAmount,
			Max:         maxAmount,
		}
	}
	return nil
}

// MinimumAmount is the MIN<suffix> rule, or zero.
func (v *RuleValidator) MinimumAmount(ctx context.Context, productCode string) decimal.Decimal {
	return v.ruleOrDefault(ctx, productCode, minRuleCode(ExtractProductSuffix(productCode)), DefaultMinAmount)
}

// MaximumAmount is the MAX<suffix> rule, or 999999999.
func (v *RuleValidator) MaximumAmount(ctx context.Context, productCode string) decimal.Decimal {
	return v.ruleOrDefault(ctx, productCode, maxRuleCode(ExtractProductSuffix(productCode)), DefaultMaxAmount)
}

// MaximumExcessInterest is the MAXINT<suffix> rule, or 2.00.
func (v *RuleValidator) MaximumExcessInterest(ctx context.Context, productCode string) decimal.Decimal {
	return v.ruleOrDefault(ctx, productCode, maxIntRuleCode(ExtractProductSuffix(productCode)), DefaultMaxExcessInterest)
}

func (v *RuleValidator) ruleOrDefault(ctx context.Context, productCode, ruleCode string, fallback decimal.Decimal) decimal.Decimal {
	value, ok := lookupRuleValue(ctx, v.provider, v.logger, productCode, ruleCode)
	if !ok {
		v.metrics.Fallback("rule")
		v.logger.Warn("using default rule value",
			"product_code", productCode, "rule_code", ruleCode, "default", fallback.String())
		return fallback
	}
	return value
}

// lookupRuleValue fetches and parses a rule. ok is false when the rule is
// missing, unparsable or the provider failed; each case is logged.
func lookupRuleValue(ctx context.Context, p Provider, logger *slog.Logger, productCode, ruleCode string) (decimal.Decimal, bool) {
	rule, err := p.RuleByCode(ctx, productCode, ruleCode)
	if err != nil {
		logger.Warn("rule lookup failed", "product_code", productCode, "rule_code", ruleCode, "error", err)
		return decimal.Zero, false
	}
	if rule == nil {
		logger.Debug("rule not found", "product_code", productCode, "rule_code", ruleCode)
		return decimal.Zero, false
	}
	value, err := rule.Value()
	if err != nil {
		logger.Warn("rule value is not numeric",
			"product_code", productCode, "rule_code", ruleCode, "value", rule.RuleValue)
		return decimal.Zero, false
	}
	return value, true
}
