/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific formatting (fixed decimal places)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Small response wrappers

DECIMALS:
  Money and rates leave the API as JSON numbers at a fixed scale: the
  currency's decimal places for money, 4 places for rates. json.Number
  keeps the trailing zeros that decimal.Decimal would drop. The principal
  is echoed as submitted, since interest was computed on that value.

VALIDATION:
  Validation is done by deposit.Request.Validate, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - deposit/types.go: Domain types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ratecache"
)

const maturityDateLayout = "2006-01-02"

// =============================================================================
// CALCULATION
// =============================================================================

// CalculateRequest is the body of POST /api/fd/calculate.
type CalculateRequest struct {
	CurrencyCode         string          `json:"currency_code"`
	PrincipalAmount      decimal.Decimal `json:"principal_amount"`
	TenureValue          int             `json:"tenure_value"`
	TenureUnit           string          `json:"tenure_unit"`
	InterestType         string          `json:"interest_type,omitempty"`
	CompoundingFrequency string          `json:"compounding_frequency,omitempty"`
	Category1ID          string          `json:"category1_id,omitempty"`
	Category2ID          string          `json:"category2_id,omitempty"`
	Cumulative           *bool           `json:"cumulative,omitempty"` // Default true
	PayoutFreq           string          `json:"payout_freq,omitempty"`
	ProductCode          string          `json:"product_code,omitempty"`
}

// ToDomain converts the body to a deposit request.
func (r CalculateRequest) ToDomain() deposit.Request {
	cumulative := true
	if r.Cumulative != nil {
		cumulative = *r.Cumulative
	}
	return deposit.Request{
		CurrencyCode:         r.CurrencyCode,
		Principal:            r.PrincipalAmount,
		TenureValue:          r.TenureValue,
		TenureUnit:           deposit.TenureUnit(r.TenureUnit),
		InterestType:         deposit.InterestType(r.InterestType),
		CompoundingFrequency: deposit.Frequency(r.CompoundingFrequency),
		Category1:            r.Category1ID,
		Category2:            r.Category2ID,
		Cumulative:           cumulative,
		PayoutFrequency:      deposit.Frequency(r.PayoutFreq),
		ProductCode:          r.ProductCode,
	}
}

// CalculationDTO is a calculation result.
type CalculationDTO struct {
	CalcID               int64        `json:"calc_id"`
	ResultID             int64        `json:"result_id"`
	MaturityValue        json.Number  `json:"maturity_value"`
	MaturityDate         string       `json:"maturity_date"`
	APY                  json.Number  `json:"apy"`
	EffectiveRate        json.Number  `json:"effective_rate"`
	PayoutFreq           *string      `json:"payout_freq"`
	PayoutAmount         *json.Number `json:"payout_amount"`
	CurrencyCode         string       `json:"currency_code"`
	PrincipalAmount      json.Number  `json:"principal_amount"`
	TenureValue          int          `json:"tenure_value"`
	TenureUnit           string       `json:"tenure_unit"`
	InterestType         string       `json:"interest_type"`
	CompoundingFrequency *string      `json:"compounding_frequency"`
	Category1ID          *string      `json:"category1_id"`
	Category2ID          *string      `json:"category2_id"`
	Cumulative           bool         `json:"cumulative"`
	ProductCode          string       `json:"product_code"`
}

func toCalculationDTO(r *deposit.Result) CalculationDTO {
	places := deposit.DecimalPlacesFor(r.CurrencyCode)
	dto := CalculationDTO{
		CalcID:               r.CalcID,
		ResultID:             r.ResultID,
		MaturityValue:        fixed(r.MaturityValue, places),
		MaturityDate:         r.MaturityDate.Format(maturityDateLayout),
		APY:                  fixed(r.APY, deposit.RateScale),
		EffectiveRate:        fixed(r.EffectiveRate, deposit.RateScale),
		CurrencyCode:         r.CurrencyCode,
		PrincipalAmount:      json.Number(r.Principal.String()),
		TenureValue:          r.TenureValue,
		TenureUnit:           string(r.TenureUnit),
		InterestType:         string(r.InterestType),
		CompoundingFrequency: strPtr(string(r.CompoundingFrequency)),
		Category1ID:          strPtr(r.Category1),
		Category2ID:          strPtr(r.Category2),
		Cumulative:           r.Cumulative,
		ProductCode:          r.ProductCode,
	}
	if r.PayoutFrequency != nil {
		dto.PayoutFreq = strPtr(string(*r.PayoutFrequency))
	}
	if r.PayoutAmount != nil {
		n := fixed(*r.PayoutAmount, places)
		dto.PayoutAmount = &n
	}
	return dto
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// CategoryDTO is a customer benefit category.
type CategoryDTO struct {
	CategoryID           int64       `json:"category_id"`
	CategoryCode         string      `json:"category_code"`
	CategoryName         string      `json:"category_name"`
	AdditionalPercentage json.Number `json:"additional_percentage"`
	ProductCode          string      `json:"product_code,omitempty"`
	UpdatedAt            *time.Time  `json:"updated_at,omitempty"`
}

func toCategoryDTO(c deposit.Category, withTimestamp bool) CategoryDTO {
	dto := CategoryDTO{
		CategoryID:           c.ID,
		CategoryCode:         c.Code,
		CategoryName:         c.Name,
		AdditionalPercentage: json.Number(c.AdditionalPercentage.String()),
		ProductCode:          c.ProductCode,
	}
	if withTimestamp && !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		dto.UpdatedAt = &t
	}
	return dto
}

// CurrencyDTO is a supported currency.
type CurrencyDTO struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	DecimalPlaces int32  `json:"decimal_places"`
}

// CompoundingOptionDTO is a supported compounding frequency.
type CompoundingOptionDTO struct {
	Value          string `json:"value"`
	Label          string `json:"label"`
	PeriodsPerYear int    `json:"periods_per_year"`
}

// =============================================================================
// RATE CACHE
// =============================================================================

// RateCacheDTO is the cached base rate of a product. BaseRate is null when
// nothing is cached.
type RateCacheDTO struct {
	ProductCode string       `json:"product_code"`
	BaseRate    *json.Number `json:"base_rate"`
	LastUpdated *time.Time   `json:"last_updated,omitempty"`
	Fresh       bool         `json:"fresh"`
}

func toRateCacheDTO(productCode string, e *ratecache.Entry, fresh bool) RateCacheDTO {
	dto := RateCacheDTO{ProductCode: productCode}
	if e == nil {
		return dto
	}
	rate := json.Number(e.BaseRate.String())
	updated := e.LastUpdated
	dto.BaseRate = &rate
	dto.LastUpdated = &updated
	dto.Fresh = fresh
	return dto
}

// RefreshResponse confirms a rate cache refresh.
type RefreshResponse struct {
	ProductCode string      `json:"product_code"`
	BaseRate    json.Number `json:"base_rate"`
	Message     string      `json:"message"`
}

// SyncResponse reports a product rule sync.
type SyncResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ProductCode string `json:"product_code"`
	Fetched     int    `json:"fetched"`
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	Skipped     int    `json:"skipped"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func fixed(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixed(places))
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
