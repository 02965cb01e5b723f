/*
engine.go - Maturity, payout and APY formulas

PURPOSE:
  Pure computation of deposit outcomes from a normalized request and an
  effective annual rate. No I/O, no provider access.

FORMULAS (r = rate/100, t = tenure in years, n = compounding periods/year):
  Simple, cumulative:     M = P * (1 + r*t)              APY = rate
  Compound, cumulative:   M = P * (1 + r/n)^(n*t)        APY = (1 + r/n)^n - 1
  Non-cumulative:         M = P
                          k = n / payoutPeriodsPerYear   (at least 1)
                          payout = P * ((1 + r/n)^k - 1)

PRECISION:
  Growth factors are computed in decimal. Maturity uses exp(n*t * ln(1 + r/n))
  so fractional periods need no float conversion; APY and payout use integer
  powers. Monetary intermediates and APY are rounded half-up to 4 places.
  Display truncation happens afterwards in the currency formatter.

ERRORS:
  Unknown tenure units and unknown compounding frequencies are fatal in the
  cumulative maturity path. The payout path falls back to quarterly
  compounding and yearly payout instead. A tenure whose growth factor
  exceeds e^100 is rejected as a validation error on tenure_value.

SEE ALSO:
  - currency.go: Output truncation
  - calendar.go: Maturity date arithmetic
*/
package deposit

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const (
	intermediateScale int32 = 4

	// growthScale is the number of decimal places kept in growth factors.
	growthScale int32 = 24
)

var (
	one           = decimal.NewFromInt(1)
	daysPerYear   = decimal.NewFromInt(365)
	monthsPerYear = decimal.NewFromInt(12)

	// maxGrowthExponent caps ln of a maturity growth factor.
	maxGrowthExponent = decimal.NewFromInt(100)
)

// Computation is the unformatted outcome of the engine.
type Computation struct {
	MaturityValue   decimal.Decimal
	MaturityDate    time.Time
	APY             decimal.Decimal
	PayoutFrequency *Frequency
	PayoutAmount    *decimal.Decimal
}

// Engine applies the deposit formulas.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine that reports degraded cases to logger.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "engine")}
}

// Compute runs the formula selected by the request's cumulative flag and
// interest type. req.InterestType must already be resolved. start is the
// deposit opening date.
func (e *Engine) Compute(req Request, effectiveRate decimal.Decimal, start time.Time) (*Computation, error) {
	maturityDate, err := MaturityDate(start, req.TenureValue, req.TenureUnit)
	if err != nil {
		return nil, err
	}

	out := &Computation{MaturityDate: maturityDate}

	if !req.Cumulative {
		payoutFreq := req.PayoutFrequency
		if payoutFreq == "" {
			payoutFreq = req.CompoundingFrequency
		}
		payoutFreq = payoutCadence(payoutFreq)
		payout := e.PeriodicPayout(req.Principal, effectiveRate, payoutFreq, req.CompoundingFrequency)

		out.MaturityValue = req.Principal
		out.PayoutFrequency = &payoutFreq
		out.PayoutAmount = &payout
		if req.CompoundingFrequency != "" && req.InterestType != InterestSimple {
			out.APY = APY(effectiveRate, req.CompoundingFrequency)
		} else {
			out.APY = effectiveRate
		}
		return out, nil
	}

	if req.InterestType == InterestSimple {
		out.MaturityValue, err = SimpleMaturity(req.Principal, effectiveRate, req.TenureValue, req.TenureUnit)
		if err != nil {
			return nil, err
		}
		out.APY = effectiveRate
		return out, nil
	}

	out.MaturityValue, err = CompoundMaturity(req.Principal, effectiveRate, req.TenureValue, req.TenureUnit, req.CompoundingFrequency)
	if err != nil {
		return nil, err
	}
	out.APY = APY(effectiveRate, req.CompoundingFrequency)
	return out, nil
}

// =============================================================================
// FORMULAS
// =============================================================================

// ToYears converts a tenure to fractional years.
func ToYears(value int, unit TenureUnit) (decimal.Decimal, error) {
	v := decimal.NewFromInt(int64(value))
	switch unit {
	case TenureDays:
		return v.Div(daysPerYear), nil
	case TenureMonths:
		return v.Div(monthsPerYear), nil
	case TenureYears:
		return v, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownTenureUnit, unit)
	}
}

// SimpleMaturity is P * (1 + r*t).
func SimpleMaturity(principal, ratePct decimal.Decimal, tenure int, unit TenureUnit) (decimal.Decimal, error) {
	years, err := ToYears(tenure, unit)
	if err != nil {
		return decimal.Zero, err
	}
	interest := principal.Mul(ratePct.Shift(-2)).Mul(years)
	return principal.Add(interest).Round(intermediateScale), nil
}

// CompoundMaturity is P * (1 + r/n)^(n*t). An empty frequency compounds yearly.
func CompoundMaturity(principal, ratePct decimal.Decimal, tenure int, unit TenureUnit, freq Frequency) (decimal.Decimal, error) {
	years, err := ToYears(tenure, unit)
	if err != nil {
		return decimal.Zero, err
	}
	if freq == "" {
		freq = FrequencyYearly
	}
	n, ok := freq.PeriodsPerYear()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCompounding, freq)
	}
	lnBase, err := periodRate(ratePct, n).Ln(growthScale)
	if err != nil {
		return decimal.Zero, fmt.Errorf("growth factor at %s%%: %w", ratePct, err)
	}
	exponent := lnBase.Mul(years.Mul(decimal.NewFromInt(int64(n)))).Round(growthScale)
	if exponent.GreaterThan(maxGrowthExponent) {
		return decimal.Zero, &ValidationError{
			Field:   "tenure_value",
			Message: fmt.Sprintf("%d %s at %s%% grows beyond the supported range", tenure, unit, ratePct),
		}
	}
	factor, err := exponent.ExpTaylor(growthScale)
	if err != nil {
		return decimal.Zero, fmt.Errorf("growth factor at %s%%: %w", ratePct, err)
	}
	return principal.Mul(factor).Round(intermediateScale), nil
}

// APY is the compounding-adjusted annual yield as a percentage. Unknown or
// empty frequencies compound yearly.
func APY(ratePct decimal.Decimal, freq Frequency) decimal.Decimal {
	n, ok := freq.PeriodsPerYear()
	if !ok {
		n = 1
	}
	return compound(periodRate(ratePct, n), n).Sub(one).Shift(2).Round(intermediateScale)
}

// PeriodicPayout is the interest paid each payout period of a non-cumulative
// deposit, compounding within the period. When payouts are more frequent than
// compounding the period holds a single compounding step.
func (e *Engine) PeriodicPayout(principal, ratePct decimal.Decimal, payoutFreq, compoundingFreq Frequency) decimal.Decimal {
	if compoundingFreq == "" {
		compoundingFreq = payoutFreq
	}
	compPerYear, ok := compoundingFreq.PeriodsPerYear()
	if !ok {
		compPerYear = 4
	}
	payoutPerYear, _ := payoutCadence(payoutFreq).PeriodsPerYear()

	k := compPerYear / payoutPerYear
	if k < 1 {
		k = 1
		e.logger.Warn("payout frequency finer than compounding, paying one compounding period",
			"payout_freq", payoutFreq, "compounding_freq", compoundingFreq)
	}

	growth := compound(periodRate(ratePct, compPerYear), k).Sub(one)
	payout := principal.Mul(growth).Round(intermediateScale)

	e.logger.Debug("computed periodic payout",
		"principal", principal.String(),
		"rate", ratePct.String(),
		"compounding_per_year", compPerYear,
		"payout_per_year", payoutPerYear,
		"periods_per_payout", k,
		"payout", payout.String())
	return payout
}

// payoutCadence maps a requested payout frequency onto the cadences a
// payout can be made at. Anything else pays yearly.
func payoutCadence(f Frequency) Frequency {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return f
	default:
		return FrequencyYearly
	}
}

// periodRate is 1 + r/n for a percentage rate r.
func periodRate(ratePct decimal.Decimal, periodsPerYear int) decimal.Decimal {
	return one.Add(ratePct.Shift(-2).DivRound(decimal.NewFromInt(int64(periodsPerYear)), growthScale))
}

// compound raises base to a positive number of periods.
func compound(base decimal.Decimal, periods int) decimal.Decimal {
	// PowInt32 only fails for 0**0 and periods is at least 1.
	v, _ := base.PowInt32(int32(periods))
	return v.Round(growthScale)
}
