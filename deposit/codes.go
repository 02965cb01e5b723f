package deposit

import "strings"

// =============================================================================
// PROVIDER CODES
// =============================================================================
// Rate and rule codes are a semantic prefix followed by a product suffix:
// INT12M001 is the 12 month slab of product FD001, SR001 the senior citizen
// benefit, MAXINT001 the excess interest cap.

const (
	RulePrefixMin    = "MIN"
	RulePrefixMax    = "MAX"
	RulePrefixMaxInt = "MAXINT"
	ratePrefix       = "INT"
)

// ExtractProductSuffix returns the last three characters of a product code,
// or the whole code when it is shorter than three characters.
func ExtractProductSuffix(productCode string) string {
	if len(productCode) < 3 {
		return productCode
	}
	return productCode[len(productCode)-3:]
}

// TenureInMonths converts a tenure to whole months for rate bracket
// selection. Days round up to the next 30-day month. An unrecognized unit
// is treated as months.
func TenureInMonths(value int, unit TenureUnit) int {
	switch unit {
	case TenureDays:
		return (value + 29) / 30
	case TenureYears:
		return value * 12
	default:
		return value
	}
}

// RateBracket maps a tenure in months to its slab label.
func RateBracket(months int) string {
	switch {
	case months <= 12:
		return "12M"
	case months <= 24:
		return "24M"
	case months <= 36:
		return "36M"
	default:
		return "60M"
	}
}

// RateCodeFor builds the provider rate code for a tenure bracket.
func RateCodeFor(months int, suffix string) string {
	return ratePrefix + RateBracket(months) + suffix
}

var categoryAliases = map[string]string{
	"SENIOR":         "SR",
	"SENIOR_CITIZEN": "SR",
	"SR":             "SR",
	"JUNIOR":         "JR",
	"JR":             "JR",
	"DIGI_YOUTH":     "DY",
	"DY":             "DY",
	"GOLD":           "GOLD",
	"SILVER":         "SIL",
	"SIL":            "SIL",
	"PLATINUM":       "PLAT",
	"PLAT":           "PLAT",
	"EMPLOYEE":       "EMP",
	"EMP":            "EMP",
}

// RuleCodeFor maps a customer category to its benefit rule code. Unknown
// categories are used upper-cased as the prefix.
func RuleCodeFor(category, suffix string) string {
	upper := strings.ToUpper(category)
	if prefix, ok := categoryAliases[upper]; ok {
		return prefix + suffix
	}
	return upper + suffix
}

func minRuleCode(suffix string) string    { return RulePrefixMin + suffix }
func maxRuleCode(suffix string) string    { return RulePrefixMax + suffix }
func maxIntRuleCode(suffix string) string { return RulePrefixMaxInt + suffix }

// rateCodeForRequest is the slab code used for a request's tenure.
func rateCodeForRequest(req Request) string {
	suffix := ExtractProductSuffix(req.ProductCode)
	return RateCodeFor(TenureInMonths(req.TenureValue, req.TenureUnit), suffix)
}
