package deposit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/deposit-engine/deposit"
)

// =============================================================================
// CODE CONSTRUCTION TESTS
// =============================================================================

func TestExtractProductSuffix(t *testing.T) {
	assert.Equal(t, "001", deposit.ExtractProductSuffix("FD001"))
	assert.Equal(t, "123", deposit.ExtractProductSuffix("RD0123"))
	assert.Equal(t, "AB", deposit.ExtractProductSuffix("AB"))
	assert.Equal(t, "", deposit.ExtractProductSuffix(""))
}

func TestTenureInMonths(t *testing.T) {
	assert.Equal(t, 12, deposit.TenureInMonths(12, deposit.TenureMonths))
	assert.Equal(t, 24, deposit.TenureInMonths(2, deposit.TenureYears))
	assert.Equal(t, 1, deposit.TenureInMonths(30, deposit.TenureDays))
	assert.Equal(t, 2, deposit.TenureInMonths(31, deposit.TenureDays))
	assert.Equal(t, 7, deposit.TenureInMonths(7, "FORTNIGHTS"))
}

func TestRateCodeFor(t *testing.T) {
	tests := []struct {
		months int
		want   string
	}{
		{1, "INT12M001"},
		{12, "INT12M001"},
		{13, "INT24M001"},
		{24, "INT24M001"},
		{36, "INT36M001"},
		{37, "INT60M001"},
		{120, "INT60M001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, deposit.RateCodeFor(tt.months, "001"), "months=%d", tt.months)
	}
}

func TestRuleCodeFor(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"SENIOR", "SR001"},
		{"senior_citizen", "SR001"},
		{"SR", "SR001"},
		{"JUNIOR", "JR001"},
		{"DIGI_YOUTH", "DY001"},
		{"GOLD", "GOLD001"},
		{"silver", "SIL001"},
		{"PLATINUM", "PLAT001"},
		{"EMPLOYEE", "EMP001"},
		{"vip", "VIP001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, deposit.RuleCodeFor(tt.category, "001"), tt.category)
	}
}

// =============================================================================
// CURRENCY TESTS
// =============================================================================

func TestFormatAmount_TruncatesPerCurrency(t *testing.T) {
	v := d("1234.56789")

	assert.Equal(t, "1234.56", deposit.FormatAmount(&v, "INR").StringFixed(2))
	assert.Equal(t, "1234", deposit.FormatAmount(&v, "JPY").StringFixed(0))
	assert.Equal(t, "1234.567", deposit.FormatAmount(&v, "AED").StringFixed(3))
	assert.Equal(t, "1234.56", deposit.FormatAmount(&v, "").StringFixed(2))
	assert.Nil(t, deposit.FormatAmount(nil, "INR"))
}

func TestFormatRate_Truncates(t *testing.T) {
	assert.Equal(t, "8.6151", deposit.FormatRate(d("8.61519")).StringFixed(4))
}

func TestSupportedCurrencies(t *testing.T) {
	codes := make([]string, 0)
	for _, c := range deposit.SupportedCurrencies() {
		codes = append(codes, c.Code)
		assert.Equal(t, c.DecimalPlaces, deposit.DecimalPlacesFor(c.Code))
	}
	assert.Equal(t, []string{"INR", "JPY", "AED"}, codes)

	assert.True(t, deposit.IsSupportedCurrency("inr"))
	assert.False(t, deposit.IsSupportedCurrency("USD"))
}

func TestFrequency_Label(t *testing.T) {
	assert.Equal(t, "Quarterly", deposit.FrequencyQuarterly.Label())
	assert.Equal(t, "", deposit.Frequency("").Label())
}
