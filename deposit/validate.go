package deposit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var minPrincipal = decimal.RequireFromString("0.01")

// Validate checks the structure of a normalized request. It does not look
// at product limits; see RuleValidator.ValidateAmount. The compounding
// frequency is checked later by the formulas that use it.
func (r Request) Validate() error {
	if r.CurrencyCode != "" && !IsSupportedCurrency(r.CurrencyCode) {
		return &ValidationError{Field: "currency_code", Message: fmt.Sprintf("unsupported currency %q", r.CurrencyCode)}
	}
	if r.Principal.LessThan(minPrincipal) {
		return &ValidationError{Field: "principal_amount", Message: "must be at least 0.01"}
	}
	if r.TenureValue < 1 {
		return &ValidationError{Field: "tenure_value", Message: "must be at least 1"}
	}
	if !r.TenureUnit.Valid() {
		return &ValidationError{
			Field:   "tenure_unit",
			Message: fmt.Sprintf("must be DAYS, MONTHS or YEARS, got %q", r.TenureUnit),
			Cause:   ErrUnknownTenureUnit,
		}
	}
	if r.InterestType != "" && !r.InterestType.Valid() {
		return &ValidationError{Field: "interest_type", Message: fmt.Sprintf("must be SIMPLE or COMPOUND, got %q", r.InterestType)}
	}
	switch r.PayoutFrequency {
	case "", FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
	default:
		return &ValidationError{Field: "payout_freq", Message: fmt.Sprintf("must be MONTHLY, QUARTERLY or YEARLY, got %q", r.PayoutFrequency)}
	}
	return nil
}
