package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCalculation(true, "COMPOUND", time.Millisecond)
		m.CalculationFailed("validation")
		m.CacheLookup("hit")
		m.Fallback("base_rate")
		m.Capped()
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	m := New("test")

	m.ObserveCalculation(true, "COMPOUND", time.Millisecond)
	m.ObserveCalculation(false, "SIMPLE", time.Millisecond)
	m.CacheLookup("miss")
	m.CacheLookup("miss")
	m.Capped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculationsTotal.WithLabelValues("cumulative", "COMPOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculationsTotal.WithLabelValues("non_cumulative", "SIMPLE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BenefitsCapped))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.ObserveHTTP("POST", "/api/fd/calculate", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="POST",route="/api/fd/calculate",status="200"} 1`)
}
