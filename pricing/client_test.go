package pricing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/config"
	"github.com/warp/deposit-engine/logging"
	"github.com/warp/deposit-engine/pricing"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newPricingServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()

	r.Get("/api/products/{productCode}/interest-rates", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "productCode") != "FD001" {
			http.NotFound(w, r)
			return
		}
		writeBody(w, `[{"rateCode":"INT12M001","termInMonths":12,"rateCumulative":7.6,"rateNonCumulativeYearly":7.6}]`)
	})
	r.Get("/api/products/{productCode}/interest-rates/{rateCode}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "rateCode") != "INT12M001" {
			http.NotFound(w, r)
			return
		}
		writeBody(w, `{"rateCode":"INT12M001","termInMonths":12,"rateCumulative":7.6,"rateNonCumulativeMonthly":7.4}`)
	})
	r.Get("/api/products/{productCode}/rules", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("size"))
		writeBody(w, `{"content":[{"ruleCode":"SR001","ruleValue":"0.75"}],"number":1,"size":100,"totalElements":101,"totalPages":2,"last":true}`)
	})
	r.Get("/api/products/{productCode}/rules/{ruleCode}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "ruleCode") != "MAXINT001" {
			http.NotFound(w, r)
			return
		}
		writeBody(w, `{"ruleId":"3","ruleCode":"MAXINT001","ruleValue":"2"}`)
	})
	r.Get("/api/products/{productCode}", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, `{"productCode":"FD001","interestType":"COMPOUND","compoundingFrequency":"QUARTERLY"}`)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func newTestClient(baseURL string) *pricing.Client {
	return pricing.NewClient(config.PricingConfig{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		RetryCount: 0,
		Breaker: config.BreakerConfig{
			MaxRequests:         1,
			Timeout:             time.Minute,
			ConsecutiveFailures: 2,
		},
	}, logging.Discard())
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestClient_InterestRates(t *testing.T) {
	c := newTestClient(newPricingServer(t).URL)

	rates, err := c.InterestRates(context.Background(), "FD001")
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "INT12M001", rates[0].RateCode)
	require.NotNil(t, rates[0].RateCumulative)
	assert.True(t, rates[0].RateCumulative.Equal(decimal.RequireFromString("7.6")))
	assert.Nil(t, rates[0].RateNonCumulativeMonthly)
}

func TestClient_InterestRateByCode_NotFoundIsNil(t *testing.T) {
	// GIVEN: The service answers 404 for an unknown slab
	// WHEN: The slab is looked up
	// THEN: (nil, nil) is returned

	c := newTestClient(newPricingServer(t).URL)
	ctx := context.Background()

	rate, err := c.InterestRateByCode(ctx, "FD001", "INT99M001")
	require.NoError(t, err)
	assert.Nil(t, rate)

	rate, err = c.InterestRateByCode(ctx, "FD001", "INT12M001")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.RateNonCumulativeMonthly.Equal(decimal.RequireFromString("7.4")))
}

func TestClient_RulesPaging(t *testing.T) {
	c := newTestClient(newPricingServer(t).URL)

	page, err := c.Rules(context.Background(), "FD001", 1, 100)
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.Last)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "SR001", page.Content[0].RuleCode)
}

func TestClient_RuleByCodeAndProduct(t *testing.T) {
	c := newTestClient(newPricingServer(t).URL)
	ctx := context.Background()

	rule, err := c.RuleByCode(ctx, "FD001", "MAXINT001")
	require.NoError(t, err)
	require.NotNil(t, rule)
	v, err := rule.Value()
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(2)))

	missing, err := c.RuleByCode(ctx, "FD001", "GOLD001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	details, err := c.ProductDetails(ctx, "FD001")
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "COMPOUND", details.InterestType)
	assert.Equal(t, "QUARTERLY", details.CompoundingFrequency)
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestClient_ServerErrors_OpenBreaker(t *testing.T) {
	// GIVEN: A service that always fails with 500
	// WHEN: Consecutive calls reach the failure threshold
	// THEN: The breaker opens and further calls fail without reaching the service

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.InterestRates(ctx, "FD001")
		var statusErr *pricing.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	}

	_, err := c.InterestRates(ctx, "FD001")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, "open", c.BreakerState())
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ClientErrors_DoNotOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)
	for i := 0; i < 3; i++ {
		_, err := c.ProductDetails(context.Background(), "FD001")
		var statusErr *pricing.StatusError
		require.ErrorAs(t, err, &statusErr)
	}
	assert.Equal(t, "closed", c.BreakerState())
}
