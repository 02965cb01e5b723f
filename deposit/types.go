/*
Package deposit provides the fixed-deposit calculation engine.

PURPOSE:
  This package turns a deposit request (principal, tenure, interest type,
  compounding and payout cadence, customer categories) into maturity and
  payout figures. Rates come from an external pricing provider; the package
  only consumes that provider through the Provider interface.

KEY CONCEPTS IN THIS FILE (types.go):
  - Request: Immutable calculation input
  - ResolvedRate: Base rate plus capped category benefits
  - Result: Maturity value, maturity date, APY, payout figures
  - TenureUnit / InterestType / Frequency: Normalized enumerations

DESIGN PRINCIPLES:
  1. Precision: All money and rate math uses decimal.Decimal
  2. Truncation: Outputs are truncated (never rounded up) for display
  3. Degradation: Missing rates or rules fall back to cached or default values
  4. Auditability: Every calculation is persisted as an input/result pair

USAGE:
  calc := deposit.NewCalculator(provider, cache, store)
  res, err := calc.Calculate(ctx, deposit.Request{
      CurrencyCode: "INR",
      Principal:    decimal.NewFromInt(100000),
      TenureValue:  12,
      TenureUnit:   deposit.TenureMonths,
      Cumulative:   true,
  })

SEE ALSO:
  - engine.go: Maturity and APY formulas
  - resolver.go: Base rate and category benefit resolution
  - calculator.go: Request orchestration and persistence
*/
package deposit

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// TenureUnit is the unit a tenure value is expressed in.
type TenureUnit string

const (
	TenureDays   TenureUnit = "DAYS"
	TenureMonths TenureUnit = "MONTHS"
	TenureYears  TenureUnit = "YEARS"
)

// Valid reports whether the unit is one of the known tenure units.
func (u TenureUnit) Valid() bool {
	switch u {
	case TenureDays, TenureMonths, TenureYears:
		return true
	}
	return false
}

// InterestType selects simple or compound interest.
type InterestType string

const (
	InterestSimple   InterestType = "SIMPLE"
	InterestCompound InterestType = "COMPOUND"
)

func (t InterestType) Valid() bool {
	return t == InterestSimple || t == InterestCompound
}

// Frequency is a compounding or payout cadence.
type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// CompoundingOptions lists the supported compounding frequencies in
// increasing order of periods per year.
var CompoundingOptions = []Frequency{FrequencyYearly, FrequencyQuarterly, FrequencyMonthly, FrequencyDaily}

// PayoutOptions lists the supported payout frequencies for non-cumulative deposits.
var PayoutOptions = []Frequency{FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}

// PeriodsPerYear returns the number of periods per year, or false for an
// unrecognized frequency.
func (f Frequency) PeriodsPerYear() (int, bool) {
	switch f {
	case FrequencyDaily:
		return 365, true
	case FrequencyMonthly:
		return 12, true
	case FrequencyQuarterly:
		return 4, true
	case FrequencyYearly:
		return 1, true
	}
	return 0, false
}

// Label is the human readable name used by reference data endpoints.
func (f Frequency) Label() string {
	if f == "" {
		return ""
	}
	s := strings.ToLower(string(f))
	return strings.ToUpper(s[:1]) + s[1:]
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is a single maturity calculation request. Optional string fields
// use the empty string for "not provided".
type Request struct {
	CurrencyCode         string
	Principal            decimal.Decimal
	TenureValue          int
	TenureUnit           TenureUnit
	InterestType         InterestType
	CompoundingFrequency Frequency
	Category1            string
	Category2            string
	Cumulative           bool
	PayoutFrequency      Frequency
	ProductCode          string
}

// Normalize upper-cases the enumerated fields and trims identifiers so that
// lookups are case insensitive.
func (r Request) Normalize() Request {
	r.CurrencyCode = normalizeCode(r.CurrencyCode)
	r.TenureUnit = TenureUnit(normalizeCode(string(r.TenureUnit)))
	r.InterestType = InterestType(normalizeCode(string(r.InterestType)))
	r.CompoundingFrequency = Frequency(normalizeCode(string(r.CompoundingFrequency)))
	r.PayoutFrequency = Frequency(normalizeCode(string(r.PayoutFrequency)))
	r.Category1 = strings.TrimSpace(r.Category1)
	r.Category2 = strings.TrimSpace(r.Category2)
	r.ProductCode = strings.TrimSpace(r.ProductCode)
	return r
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// =============================================================================
// RESOLVED RATE
// =============================================================================

// ResolvedRate is the outcome of rate resolution. All values are percentages.
type ResolvedRate struct {
	Base           decimal.Decimal
	ExtraBeforeCap decimal.Decimal
	Cap            decimal.Decimal
	Extra          decimal.Decimal
	Effective      decimal.Decimal
}

// Capped reports whether the category benefits were reduced by the cap.
func (r ResolvedRate) Capped() bool {
	return r.ExtraBeforeCap.GreaterThan(r.Extra)
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the formatted outcome of a calculation. PayoutFrequency and
// PayoutAmount are set only for non-cumulative deposits.
type Result struct {
	CalcID   int64
	ResultID int64

	MaturityValue   decimal.Decimal
	MaturityDate    time.Time
	APY             decimal.Decimal
	EffectiveRate   decimal.Decimal
	PayoutFrequency *Frequency
	PayoutAmount    *decimal.Decimal

	CurrencyCode         string
	Principal            decimal.Decimal
	TenureValue          int
	TenureUnit           TenureUnit
	InterestType         InterestType
	CompoundingFrequency Frequency
	Category1            string
	Category2            string
	Cumulative           bool
	ProductCode          string
}

// =============================================================================
// PERSISTED RECORDS
// =============================================================================

// InputRecord is the stored copy of a normalized request.
type InputRecord struct {
	ID        int64
	Request   Request
	CreatedAt time.Time
}

// ResultRecord is the stored copy of a calculation outcome, linked 1:1 to an
// InputRecord through InputID.
type ResultRecord struct {
	ID              int64
	InputID         int64
	MaturityValue   decimal.Decimal
	MaturityDate    time.Time
	APY             decimal.Decimal
	EffectiveRate   decimal.Decimal
	PayoutFrequency *Frequency
	PayoutAmount    *decimal.Decimal
	CreatedAt       time.Time
}

// ToResult joins an input and result record back into the response shape.
func ToResult(in InputRecord, out ResultRecord) *Result {
	req := in.Request
	return &Result{
		CalcID:               in.ID,
		ResultID:             out.ID,
		MaturityValue:        out.MaturityValue,
		MaturityDate:         out.MaturityDate,
		APY:                  out.APY,
		EffectiveRate:        out.EffectiveRate,
		PayoutFrequency:      out.PayoutFrequency,
		PayoutAmount:         out.PayoutAmount,
		CurrencyCode:         req.CurrencyCode,
		Principal:            req.Principal,
		TenureValue:          req.TenureValue,
		TenureUnit:           req.TenureUnit,
		InterestType:         req.InterestType,
		CompoundingFrequency: req.CompoundingFrequency,
		Category1:            req.Category1,
		Category2:            req.Category2,
		Cumulative:           req.Cumulative,
		ProductCode:          req.ProductCode,
	}
}

// Category is a customer category that carries an interest benefit.
type Category struct {
	ID                   int64
	Code                 string
	Name                 string
	AdditionalPercentage decimal.Decimal
	ProductCode          string
	UpdatedAt            time.Time
}
