/*
errors.go - Centralized error types for the deposit engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is against the sentinels below,
  or with the IsClientError / IsNotFound helpers.

ERROR CATEGORIES:
  1. Input validation errors - Rejected before any rate lookup or persistence
  2. Lookup errors - Stored calculations that do not exist
  3. Provider errors - Upstream pricing failures that could not be degraded

Resolution problems (missing rates, missing rules, provider timeouts during
benefit lookup) are NOT errors. They are logged and replaced by fallback values.

SEE ALSO:
  - calculator.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package deposit

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRequest is returned when a request field fails structural validation.
	ErrInvalidRequest = errors.New("invalid calculation request")

	// ErrInterestTypeRequired is returned when neither the request nor the
	// product configuration supplies an interest type.
	ErrInterestTypeRequired = errors.New("interest type is required")

	// ErrUnknownTenureUnit is returned by the maturity formulas for a tenure unit
	// outside DAYS/MONTHS/YEARS.
	ErrUnknownTenureUnit = errors.New("unknown tenure unit")

	// ErrUnknownCompounding is returned by the maturity formulas for an
	// unrecognized compounding frequency.
	ErrUnknownCompounding = errors.New("unknown compounding frequency")

	// ErrAmountOutOfRange is returned when the principal falls outside the
	// product's configured minimum and maximum.
	ErrAmountOutOfRange = errors.New("principal outside product limits")

	// ErrCalculationNotFound is returned when a calculation id does not exist.
	ErrCalculationNotFound = errors.New("calculation not found")

	// ErrProviderUnavailable wraps pricing provider failures that surface to the caller.
	ErrProviderUnavailable = errors.New("pricing provider unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the request field that failed validation. Cause,
// when set, is a more specific sentinel such as ErrUnknownTenureUnit.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrInvalidRequest
}

// AmountOutOfRangeError provides the limits a principal was checked against.
type AmountOutOfRangeError struct {
	ProductCode string
	Amount      decimal.Decimal
	Min         decimal.Decimal
	Max         decimal.Decimal
}

func (e *AmountOutOfRangeError) Error() string {
	if e.Amount.LessThan(e.Min) {
		return fmt.Sprintf("principal %s is below the minimum %s for product %s",
			e.Amount, e.Min, e.ProductCode)
	}
	return fmt.Sprintf("principal %s exceeds the maximum %s for product %s",
		e.Amount, e.Max, e.ProductCode)
}

func (e *AmountOutOfRangeError) Unwrap() error {
	return ErrAmountOutOfRange
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInterestTypeRequired) ||
		errors.Is(err, ErrUnknownTenureUnit) ||
		errors.Is(err, ErrUnknownCompounding) ||
		errors.Is(err, ErrAmountOutOfRange)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCalculationNotFound)
}
