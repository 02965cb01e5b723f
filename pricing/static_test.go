package pricing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/pricing"
)

func TestLoadCatalog(t *testing.T) {
	p, err := pricing.LoadCatalog("testdata/catalog.json")
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, []string{"FD001"}, p.ProductCodes())

	rates, err := p.InterestRates(ctx, "FD001")
	require.NoError(t, err)
	require.Len(t, rates, 4)
	assert.True(t, rates[0].RateCumulative.Equal(decimal.RequireFromString("7.6")))

	slab, err := p.InterestRateByCode(ctx, "FD001", "INT36M001")
	require.NoError(t, err)
	require.NotNil(t, slab)
	assert.True(t, slab.NonCumulativeRate(deposit.FrequencyMonthly).Equal(decimal.RequireFromString("7.85")))

	details, err := p.ProductDetails(ctx, "FD001")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "QUARTERLY", details.CompoundingFrequency)
}

func TestStaticProvider_UnknownProduct(t *testing.T) {
	p, err := pricing.LoadCatalog("testdata/catalog.json")
	require.NoError(t, err)
	ctx := context.Background()

	rates, err := p.InterestRates(ctx, "FD404")
	assert.NoError(t, err)
	assert.Empty(t, rates)

	details, err := p.ProductDetails(ctx, "FD404")
	assert.NoError(t, err)
	assert.Nil(t, details)

	rule, err := p.RuleByCode(ctx, "FD404", "MIN404")
	assert.NoError(t, err)
	assert.Nil(t, rule)
}

func TestStaticProvider_RulesPaging(t *testing.T) {
	// GIVEN: A catalog with 10 rules
	// WHEN: Pages of 4 are requested
	// THEN: Pages hold 4, 4 and 2 rules and only the last is marked last

	p, err := pricing.LoadCatalog("testdata/catalog.json")
	require.NoError(t, err)
	ctx := context.Background()

	var sizes []int
	for page := 0; ; page++ {
		resp, err := p.Rules(ctx, "FD001", page, 4)
		require.NoError(t, err)
		assert.Equal(t, 10, resp.TotalElements)
		assert.Equal(t, 3, resp.TotalPages)
		sizes = append(sizes, len(resp.Content))
		if resp.Last {
			break
		}
		require.Less(t, page, 3)
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)

	_, err = p.Rules(ctx, "FD001", 0, 0)
	assert.Error(t, err)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"products": [`},
		{"missing code", `{"products": [{"product": {"productName": "x"}}]}`},
		{"duplicate code", `{"products": [{"product": {"productCode": "FD001"}}, {"product": {"productCode": "FD001"}}]}`},
		{"non-numeric rule", `{"products": [{"product": {"productCode": "FD001"}, "rules": [{"ruleCode": "SR001", "ruleValue": "lots"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pricing.ParseCatalog([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestStaticProvider_SetRule(t *testing.T) {
	p, err := pricing.NewStaticProvider(pricing.CatalogJSON{})
	require.NoError(t, err)
	ctx := context.Background()

	p.SetRule("FD002", deposit.Rule{RuleCode: "SR002", RuleValue: "0.5"})
	p.SetRule("FD002", deposit.Rule{RuleCode: "SR002", RuleValue: "0.6"})

	rule, err := p.RuleByCode(ctx, "FD002", "SR002")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "0.6", rule.RuleValue)

	page, err := p.Rules(ctx, "FD002", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
}
