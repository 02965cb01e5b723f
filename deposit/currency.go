package deposit

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateScale is the number of decimal places kept for rates and APY.
const RateScale int32 = 4

// DefaultCurrency is used when a request omits the currency.
const DefaultCurrency = "INR"

// Currency describes a supported deposit currency.
type Currency struct {
	Code          string
	Name          string
	DecimalPlaces int32
}

var currencies = []Currency{
	{Code: "INR", Name: "Indian Rupee", DecimalPlaces: 2},
	{Code: "JPY", Name: "Japanese Yen", DecimalPlaces: 0},
	{Code: "AED", Name: "UAE Dirham", DecimalPlaces: 3},
}

// SupportedCurrencies returns the currencies a request may use.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}

// IsSupportedCurrency reports whether code is one of SupportedCurrencies.
func IsSupportedCurrency(code string) bool {
	code = strings.ToUpper(code)
	for _, c := range currencies {
		if c.Code == code {
			return true
		}
	}
	return false
}

// DecimalPlacesFor returns the display precision for a currency. Unknown or
// empty codes use two places.
func DecimalPlacesFor(currency string) int32 {
	switch strings.ToUpper(currency) {
	case "JPY":
		return 0
	case "AED":
		return 3
	default:
		return 2
	}
}

// FormatAmount truncates value toward zero to the currency's decimal places.
// A nil value stays nil.
func FormatAmount(value *decimal.Decimal, currency string) *decimal.Decimal {
	if value == nil {
		return nil
	}
	v := value.Truncate(DecimalPlacesFor(currency))
	return &v
}

// FormatRate truncates a percentage to four decimal places.
func FormatRate(value decimal.Decimal) decimal.Decimal {
	return value.Truncate(RateScale)
}
