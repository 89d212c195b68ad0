package audit

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightway-clinics/seo-audit/pkg/pagespeed"
)

type fakePagespeedClient struct {
	result *pagespeed.Result
	err    error

	calls []pagespeed.Strategy
}

func (f *fakePagespeedClient) RunPagespeed(_ context.Context, _ string, strategy pagespeed.Strategy) (*pagespeed.Result, error) {
	f.calls = append(f.calls, strategy)
	return f.result, f.err
}

func lighthouseFixture() *pagespeed.Result {
	score := func(v float64) *float64 { return &v }
	return &pagespeed.Result{
		LighthouseResult: &pagespeed.LighthouseResult{
			Categories: map[string]pagespeed.Category{
				"performance":    {Score: score(0.345)},
				"seo":            {Score: score(0.92)},
				"accessibility":  {Score: score(0.88)},
				"best-practices": {Score: score(1.0)},
			},
			Audits: map[string]pagespeed.Audit{
				"largest-contentful-paint": {
					Score:        score(0.2),
					NumericValue: score(4800),
					Title:        "Largest Contentful Paint",
					DisplayValue: "4.8 s",
				},
				"cumulative-layout-shift": {
					Score:        score(0.95),
					NumericValue: score(0.02),
				},
				"total-blocking-time": {
					Score:        score(0.4),
					NumericValue: score(750),
					Title:        "Total Blocking Time",
				},
				"render-blocking-resources": {
					Score: score(0.3),
					Title: "Eliminate render-blocking resources",
					Details: &pagespeed.AuditDetails{
						Type:             "opportunity",
						OverallSavingsMs: score(1200),
					},
				},
				"unused-javascript": {
					Score: score(0.5),
					Title: "Reduce unused JavaScript",
					Details: &pagespeed.AuditDetails{
						Type:             "opportunity",
						OverallSavingsMs: score(2400),
					},
				},
				"uses-passive-event-listeners": {
					Score: score(1.0),
					Title: "Uses passive listeners",
				},
			},
		},
	}
}

func TestProber_Probe(t *testing.T) {
	client := &fakePagespeedClient{result: lighthouseFixture()}
	prober := NewProber(client)

	res := prober.Probe(context.Background(), "https://www.brightwayclinics.com/", pagespeed.StrategyMobile)

	require.Empty(t, res.Error)
	assert.Equal(t, pagespeed.StrategyMobile, res.Strategy)

	// Category scores are scaled to 0..100 and rounded.
	require.NotNil(t, res.PerformanceScore)
	assert.Equal(t, 35, *res.PerformanceScore)
	require.NotNil(t, res.SEOScore)
	assert.Equal(t, 92, *res.SEOScore)
	require.NotNil(t, res.AccessibilityScore)
	assert.Equal(t, 88, *res.AccessibilityScore)
	require.NotNil(t, res.BestPracticesScore)
	assert.Equal(t, 100, *res.BestPracticesScore)

	require.NotNil(t, res.Metrics.LargestContentfulPaintMs)
	assert.Equal(t, 4800.0, *res.Metrics.LargestContentfulPaintMs)
	require.NotNil(t, res.Metrics.CumulativeLayoutShift)
	assert.Equal(t, 0.02, *res.Metrics.CumulativeLayoutShift)
	assert.Nil(t, res.Metrics.SpeedIndexMs)

	// Opportunities sorted by savings descending; passing audits excluded.
	require.Len(t, res.Opportunities, 2)
	assert.Equal(t, "unused-javascript", res.Opportunities[0].ID)
	assert.Equal(t, 2400.0, res.Opportunities[0].SavingsMs)
	assert.Equal(t, "render-blocking-resources", res.Opportunities[1].ID)

	// Deficient audits without savings land in diagnostics, sorted by id.
	require.Len(t, res.Diagnostics, 3)
	assert.Equal(t, "cumulative-layout-shift", res.Diagnostics[0].ID)
	assert.Equal(t, "largest-contentful-paint", res.Diagnostics[1].ID)
	assert.Equal(t, "total-blocking-time", res.Diagnostics[2].ID)
}

func TestProber_NilClient(t *testing.T) {
	prober := NewProber(nil)

	res := prober.Probe(context.Background(), "https://www.brightwayclinics.com/", pagespeed.StrategyDesktop)

	assert.Equal(t, "pagespeed API key not configured", res.Error)
	assert.Nil(t, res.PerformanceScore)
}

func TestProber_ClientError(t *testing.T) {
	client := &fakePagespeedClient{err: eris.New("pagespeed: unexpected status 500")}
	prober := NewProber(client)

	res := prober.Probe(context.Background(), "https://www.brightwayclinics.com/", pagespeed.StrategyMobile)

	assert.Contains(t, res.Error, "unexpected status 500")
	assert.Nil(t, res.PerformanceScore)
}

func TestProber_MissingLighthouseResult(t *testing.T) {
	client := &fakePagespeedClient{result: &pagespeed.Result{}}
	prober := NewProber(client)

	res := prober.Probe(context.Background(), "https://www.brightwayclinics.com/", pagespeed.StrategyMobile)

	assert.Equal(t, "pagespeed: response missing lighthouse result", res.Error)
}
