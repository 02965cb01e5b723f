/*
Package pricing provides deposit.Provider implementations.

PURPOSE:
  The deposit engine reads interest rate slabs, product rules and product
  defaults from the product and pricing service. This package talks to that
  service over HTTP (Client) or serves a fixed JSON catalog (StaticProvider)
  for local runs and tests.

ENDPOINTS (relative to the configured base URL):
  GET /api/products/{productCode}/interest-rates
  GET /api/products/{productCode}/interest-rates/{rateCode}
  GET /api/products/{productCode}/rules?page={page}&size={size}
  GET /api/products/{productCode}/rules/{ruleCode}
  GET /api/products/{productCode}

FAILURE HANDLING:
  - 404 means "no such record" and yields (nil, nil)
  - Transport errors and 5xx responses are retried by resty
  - Repeated failures open a circuit breaker; while open every call fails
    fast with gobreaker.ErrOpenState and callers fall back
  - Other 4xx responses surface as *StatusError and do not trip the breaker

SEE ALSO:
  - deposit/provider.go: The Provider contract
  - static.go: Catalog-backed provider
*/
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"github.com/warp/deposit-engine/config"
	"github.com/warp/deposit-engine/deposit"
)

const (
	pathInterestRates = "/api/products/{productCode}/interest-rates"
	pathInterestRate  = "/api/products/{productCode}/interest-rates/{rateCode}"
	pathRules         = "/api/products/{productCode}/rules"
	pathRule          = "/api/products/{productCode}/rules/{ruleCode}"
	pathProduct       = "/api/products/{productCode}"
)

// StatusError is a non-404 error response from the pricing service.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pricing service %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client is the HTTP pricing provider.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ deposit.Provider = (*Client)(nil)

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg config.PricingConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pricing")

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pricing",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: httpClient, breaker: breaker, logger: logger}
}

// BreakerState reports the circuit breaker state (closed, half-open, open).
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) InterestRates(ctx context.Context, productCode string) ([]deposit.InterestRate, error) {
	var rates []deposit.InterestRate
	found, err := c.get(ctx, pathInterestRates, map[string]string{"productCode": productCode}, nil, &rates)
	if err != nil || !found {
		return nil, err
	}
	return rates, nil
}

func (c *Client) InterestRateByCode(ctx context.Context, productCode, rateCode string) (*deposit.InterestRate, error) {
	var rate deposit.InterestRate
	found, err := c.get(ctx, pathInterestRate, map[string]string{"productCode": productCode, "rateCode": rateCode}, nil, &rate)
	if err != nil || !found {
		return nil, err
	}
	return &rate, nil
}

func (c *Client) Rules(ctx context.Context, productCode string, page, size int) (*deposit.RulePage, error) {
	var out deposit.RulePage
	query := map[string]string{"page": strconv.Itoa(page), "size": strconv.Itoa(size)}
	found, err := c.get(ctx, pathRules, map[string]string{"productCode": productCode}, query, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RuleByCode(ctx context.Context, productCode, ruleCode string) (*deposit.Rule, error) {
	var rule deposit.Rule
	found, err := c.get(ctx, pathRule, map[string]string{"productCode": productCode, "ruleCode": ruleCode}, nil, &rule)
	if err != nil || !found {
		return nil, err
	}
	return &rule, nil
}

func (c *Client) ProductDetails(ctx context.Context, productCode string) (*deposit.ProductDetails, error) {
	var details deposit.ProductDetails
	found, err := c.get(ctx, pathProduct, map[string]string{"productCode": productCode}, nil, &details)
	if err != nil || !found {
		return nil, err
	}
	return &details, nil
}

// get decodes a JSON response into out. found is false on 404.
func (c *Client) get(ctx context.Context, path string, params, query map[string]string, out any) (bool, error) {
	found := false
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParams(params).
			SetQueryParams(query).
			SetResult(out).
			ForceContentType("application/json").
			Get(path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, nil
		}
		if resp.IsError() {
			return nil, &StatusError{
				Method:     resp.Request.Method,
				URL:        resp.Request.URL,
				StatusCode: resp.StatusCode(),
				Body:       resp.String(),
			}
		}
		found = true
		return nil, nil
	})
	if err != nil {
		c.logger.Debug("pricing request failed", "path", path, "params", params, "error", err)
		return false, err
	}
	return found, nil
}
