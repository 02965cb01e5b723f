/*
provider.go - Pricing provider contract

PURPOSE:
  The engine never owns rates or rules. It reads them from an external
  product and pricing service through this interface. Implementations live
  in the pricing package (HTTP client, static catalog) and in tests.

NOT FOUND CONTRACT:
  Lookups by code return (nil, nil) when the record does not exist. A
  non-nil error always means the provider could not answer.

SEE ALSO:
  - pricing/client.go: HTTP implementation
  - pricing/static.go: Catalog-backed implementation
*/
package deposit

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider is the product and pricing service the engine consumes.
type Provider interface {
	// InterestRates returns every rate slab configured for a product.
	InterestRates(ctx context.Context, productCode string) ([]InterestRate, error)

	// InterestRateByCode returns one slab, or nil if it does not exist.
	InterestRateByCode(ctx context.Context, productCode, rateCode string) (*InterestRate, error)

	// Rules returns one page of the product's rules. Pages are zero based.
	Rules(ctx context.Context, productCode string, page, size int) (*RulePage, error)

	// RuleByCode returns one rule, or nil if it does not exist.
	RuleByCode(ctx context.Context, productCode, ruleCode string) (*Rule, error)

	// ProductDetails returns product level defaults, or nil if the product is unknown.
	ProductDetails(ctx context.Context, productCode string) (*ProductDetails, error)
}

// InterestRate is one tenure slab. Any rate may be absent.
type InterestRate struct {
	RateID                     string           `json:"rateId"`
	RateCode                   string           `json:"rateCode"`
	TermInMonths               int              `json:"termInMonths"`
	RateCumulative             *decimal.Decimal `json:"rateCumulative"`
	RateNonCumulativeMonthly   *decimal.Decimal `json:"rateNonCumulativeMonthly"`
	RateNonCumulativeQuarterly *decimal.Decimal `json:"rateNonCumulativeQuarterly"`
	RateNonCumulativeYearly    *decimal.Decimal `json:"rateNonCumulativeYearly"`
}

// NonCumulativeRate picks the sub-rate for a payout frequency. Unrecognized
// frequencies use the yearly rate.
func (r InterestRate) NonCumulativeRate(freq Frequency) *decimal.Decimal {
	switch freq {
	case FrequencyMonthly:
		return r.RateNonCumulativeMonthly
	case FrequencyQuarterly:
		return r.RateNonCumulativeQuarterly
	default:
		return r.RateNonCumulativeYearly
	}
}

// Rule is a product rule. RuleValue is kept as the provider's string and
// parsed where it is used.
type Rule struct {
	RuleID         string `json:"ruleId"`
	RuleCode       string `json:"ruleCode"`
	RuleName       string `json:"ruleName"`
	RuleType       string `json:"ruleType"`
	DataType       string `json:"dataType"`
	RuleValue      string `json:"ruleValue"`
	ValidationType string `json:"validationType"`
}

// Value parses RuleValue as a decimal.
func (r Rule) Value() (decimal.Decimal, error) {
	return decimal.NewFromString(r.RuleValue)
}

// RulePage is one page of rules.
type RulePage struct {
	Content       []Rule `json:"content"`
	Number        int    `json:"number"`
	Size          int    `json:"size"`
	TotalElements int    `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
	First         bool   `json:"first"`
	Last          bool   `json:"last"`
	Empty         bool   `json:"empty"`
}

// ProductDetails carries the product defaults used when a request omits them.
type ProductDetails struct {
	ProductID            string `json:"productId"`
	ProductCode          string `json:"productCode"`
	ProductName          string `json:"productName"`
	ProductType          string `json:"productType"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	InterestType         string `json:"interestType"`
	CompoundingFrequency string `json:"compoundingFrequency"`
}

// BaseRateSource supplies the fallback base rate for a product.
type BaseRateSource interface {
	BaseRate(ctx context.Context, productCode string) (decimal.Decimal, error)
}
