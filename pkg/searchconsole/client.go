// Package searchconsole wraps the Search Console URL Inspection API.
package searchconsole

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://searchconsole.googleapis.com/v1"

// Client performs URL Inspection API operations against one site property.
type Client interface {
	InspectURL(ctx context.Context, inspectionURL string) (*InspectionResult, error)
}

// InspectionResult is the nested verdict structure for one inspected URL.
type InspectionResult struct {
	IndexStatusResult     *IndexStatusResult     `json:"indexStatusResult"`
	MobileUsabilityResult *MobileUsabilityResult `json:"mobileUsabilityResult"`
	RichResultsResult     *RichResultsResult     `json:"richResultsResult"`
}

// IndexStatusResult describes how the search index sees the URL.
type IndexStatusResult struct {
	Verdict         string   `json:"verdict"`
	CoverageState   string   `json:"coverageState"`
	IndexingState   string   `json:"indexingState"`
	PageFetchState  string   `json:"pageFetchState"`
	RobotsTxtState  string   `json:"robotsTxtState"`
	CrawledAs       string   `json:"crawledAs"`
	LastCrawlTime   string   `json:"lastCrawlTime"`
	GoogleCanonical string   `json:"googleCanonical"`
	UserCanonical   string   `json:"userCanonical"`
	ReferringUrls   []string `json:"referringUrls"`
}

// MobileUsabilityResult is the mobile usability verdict plus sub-issues.
type MobileUsabilityResult struct {
	Verdict string                 `json:"verdict"`
	Issues  []MobileUsabilityIssue `json:"issues"`
}

// MobileUsabilityIssue is one mobile usability finding.
type MobileUsabilityIssue struct {
	IssueType string `json:"issueType"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// RichResultsResult reports structured-data detection for the URL.
type RichResultsResult struct {
	Verdict       string         `json:"verdict"`
	DetectedItems []DetectedItem `json:"detectedItems"`
}

// DetectedItem is one detected rich result type.
type DetectedItem struct {
	RichResultType string `json:"richResultType"`
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

// WithRateLimit overrides the default request rate (2 req/s).
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
	token   string
	siteURL string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a URL Inspection client bound to one site property.
func NewClient(token, siteURL string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		siteURL: siteURL,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type inspectRequest struct {
	InspectionURL string `json:"inspectionUrl"`
	SiteURL       string `json:"siteUrl"`
}

type inspectResponse struct {
	InspectionResult *InspectionResult `json:"inspectionResult"`
}

func (c *httpClient) InspectURL(ctx context.Context, inspectionURL string) (*InspectionResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "searchconsole: rate limit")
		}
	}

	body, err := json.Marshal(inspectRequest{InspectionURL: inspectionURL, SiteURL: c.siteURL})
	if err != nil {
		return nil, eris.Wrap(err, "searchconsole: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urlInspection/index:inspect", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "searchconsole: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "searchconsole: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "searchconsole: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("searchconsole: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result inspectResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "searchconsole: unmarshal response")
	}
	if result.InspectionResult == nil {
		return nil, eris.New("searchconsole: empty inspection result")
	}

	return result.InspectionResult, nil
}
