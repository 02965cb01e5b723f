// Package metrics holds the Prometheus collectors for the deposit service.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	CalculationsTotal   *prometheus.CounterVec
	CalculationFailures *prometheus.CounterVec
	CalculationDuration prometheus.Histogram
	RateCacheLookups    *prometheus.CounterVec
	ProviderFallbacks   *prometheus.CounterVec
	BenefitsCapped      prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calculator",
			Name:      "calculations_total",
			Help:      "Completed deposit calculations",
		}, []string{"mode", "interest_type"}),
		CalculationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calculator",
			Name:      "failures_total",
			Help:      "Rejected or failed deposit calculations",
		}, []string{"reason"}),
		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "calculator",
			Name:      "duration_seconds",
			Help:      "Time to resolve, compute and store a calculation",
			Buckets:   prometheus.DefBuckets,
		}),
		RateCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate_cache",
			Name:      "lookups_total",
			Help:      "Base rate cache lookups by outcome",
		}, []string{"result"}),
		ProviderFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "fallbacks_total",
			Help:      "Lookups that fell back to a cached or default value",
		}, []string{"kind"}),
		BenefitsCapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "benefits_capped_total",
			Help:      "Calculations whose category benefits hit the excess interest cap",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CalculationsTotal,
		m.CalculationFailures,
		m.CalculationDuration,
		m.RateCacheLookups,
		m.ProviderFallbacks,
		m.BenefitsCapped,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveCalculation(cumulative bool, interestType string, d time.Duration) {
	if m == nil {
		return
	}
	mode := "non_cumulative"
	if cumulative {
		mode = "cumulative"
	}
	m.CalculationsTotal.WithLabelValues(mode, interestType).Inc()
	m.CalculationDuration.Observe(d.Seconds())
}

func (m *Metrics) CalculationFailed(reason string) {
	if m == nil {
		return
	}
	m.CalculationFailures.WithLabelValues(reason).Inc()
}

// CacheLookup counts a rate cache lookup. result is hit, miss, stale or refresh.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.RateCacheLookups.WithLabelValues(result).Inc()
}

// Fallback counts a degraded lookup. kind is base_rate, benefit, rule or product.
func (m *Metrics) Fallback(kind string) {
	if m == nil {
		return
	}
	m.ProviderFallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) Capped() {
	if m == nil {
		return
	}
	m.BenefitsCapped.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
