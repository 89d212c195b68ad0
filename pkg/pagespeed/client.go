// Package pagespeed wraps the PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5"

// Strategy selects the emulated device profile for a measurement.
type Strategy string

const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
)

// categories requested on every measurement.
var categories = []string{"performance", "seo", "accessibility", "best-practices"}

// Client performs PageSpeed Insights API operations.
type Client interface {
	RunPagespeed(ctx context.Context, targetURL string, strategy Strategy) (*Result, error)
}

// Result is the top-level API response.
type Result struct {
	LighthouseResult *LighthouseResult `json:"lighthouseResult"`
}

// LighthouseResult holds category scores and per-audit results.
type LighthouseResult struct {
	Categories map[string]Category `json:"categories"`
	Audits     map[string]Audit    `json:"audits"`
}

// Category is one scored lighthouse category (0..1, nil if not computed).
type Category struct {
	Score *float64 `json:"score"`
}

// Audit is one lighthouse audit result.
type Audit struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Score        *float64      `json:"score"`
	NumericValue *float64      `json:"numericValue"`
	DisplayValue string        `json:"displayValue"`
	Details      *AuditDetails `json:"details"`
}

// AuditDetails carries the subset of audit details the pipeline reads.
type AuditDetails struct {
	Type             string   `json:"type"`
	OverallSavingsMs *float64 `json:"overallSavingsMs"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (1 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a PageSpeed Insights client. Lighthouse runs are slow,
// so the default timeout is deliberately generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
		limiter: rate.NewLimiter(1, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) RunPagespeed(ctx context.Context, targetURL string, strategy Strategy) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "pagespeed: rate limit")
		}
	}

	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("strategy", string(strategy))
	for _, cat := range categories {
		q.Add("category", cat)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runPagespeed?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pagespeed: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "pagespeed: unmarshal response")
	}

	return &result, nil
}
