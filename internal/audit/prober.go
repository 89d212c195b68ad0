// Package audit implements the SEO audit pipeline: probing external
// measurement APIs, classifying raw metrics into issues, and orchestrating
// run lifecycles.
package audit

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/internal/model"
	"github.com/brightway-clinics/seo-audit/pkg/pagespeed"
)

// deficientScore is the lighthouse score below which an audit counts as an
// opportunity or diagnostic.
const deficientScore = 0.9

// PerformanceResult is the normalized outcome of one probe. API and
// configuration failures populate Error instead of surfacing as a returned
// error, so partial runs can still be persisted.
type PerformanceResult struct {
	Strategy           pagespeed.Strategy
	PerformanceScore   *int
	SEOScore           *int
	AccessibilityScore *int
	BestPracticesScore *int
	Metrics            model.LabMetrics
	Opportunities      []model.Opportunity
	Diagnostics        []Diagnostic
	Error              string
}

// Diagnostic is a deficient audit with no quantified time savings.
type Diagnostic struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	DisplayValue string `json:"display_value,omitempty"`
}

// PerfProber measures one URL under one device strategy.
type PerfProber interface {
	Probe(ctx context.Context, url string, strategy pagespeed.Strategy) *PerformanceResult
}

// Prober runs performance measurements through the PageSpeed API.
type Prober struct {
	client pagespeed.Client
}

// NewProber creates a Prober. A nil client is tolerated and reported as a
// configuration error on every probe.
func NewProber(client pagespeed.Client) *Prober {
	return &Prober{client: client}
}

// Probe measures one URL under one device strategy. It never returns an
// error: failures of any kind leave the score fields nil and set Error.
func (p *Prober) Probe(ctx context.Context, url string, strategy pagespeed.Strategy) *PerformanceResult {
	res := &PerformanceResult{Strategy: strategy}

	if p.client == nil {
		res.Error = "pagespeed API key not configured"
		return res
	}

	raw, err := p.client.RunPagespeed(ctx, url, strategy)
	if err != nil {
		zap.L().Warn("audit: pagespeed probe failed",
			zap.String("url", url),
			zap.String("strategy", string(strategy)),
			zap.Error(err),
		)
		res.Error = err.Error()
		return res
	}
	if raw == nil || raw.LighthouseResult == nil {
		res.Error = "pagespeed: response missing lighthouse result"
		return res
	}

	lr := raw.LighthouseResult
	res.PerformanceScore = categoryScore(lr, "performance")
	res.SEOScore = categoryScore(lr, "seo")
	res.AccessibilityScore = categoryScore(lr, "accessibility")
	res.BestPracticesScore = categoryScore(lr, "best-practices")
	res.Metrics = labMetrics(lr)
	res.Opportunities, res.Diagnostics = splitAudits(lr)

	return res
}

// categoryScore converts a 0..1 lighthouse category score to 0..100.
func categoryScore(lr *pagespeed.LighthouseResult, id string) *int {
	c, ok := lr.Categories[id]
	if !ok || c.Score == nil {
		return nil
	}
	s := int(math.Round(*c.Score * 100))
	return &s
}

func labMetrics(lr *pagespeed.LighthouseResult) model.LabMetrics {
	return model.LabMetrics{
		FirstContentfulPaintMs:   auditValue(lr, "first-contentful-paint"),
		LargestContentfulPaintMs: auditValue(lr, "largest-contentful-paint"),
		TotalBlockingTimeMs:      auditValue(lr, "total-blocking-time"),
		CumulativeLayoutShift:    auditValue(lr, "cumulative-layout-shift"),
		SpeedIndexMs:             auditValue(lr, "speed-index"),
		TimeToInteractiveMs:      auditValue(lr, "interactive"),
	}
}

func auditValue(lr *pagespeed.LighthouseResult, id string) *float64 {
	a, ok := lr.Audits[id]
	if !ok || a.NumericValue == nil {
		return nil
	}
	v := *a.NumericValue
	return &v
}

// splitAudits partitions deficient audits into opportunities (quantified
// savings, sorted descending) and diagnostics (everything else).
func splitAudits(lr *pagespeed.LighthouseResult) ([]model.Opportunity, []Diagnostic) {
	var opps []model.Opportunity
	var diags []Diagnostic

	for id, a := range lr.Audits {
		if a.Score == nil || *a.Score >= deficientScore {
			continue
		}
		if a.Details != nil && a.Details.Type == "opportunity" && a.Details.OverallSavingsMs != nil {
			opps = append(opps, model.Opportunity{
				ID:          id,
				Title:       a.Title,
				Description: a.Description,
				SavingsMs:   *a.Details.OverallSavingsMs,
			})
			continue
		}
		diags = append(diags, Diagnostic{
			ID:           id,
			Title:        a.Title,
			Description:  a.Description,
			DisplayValue: a.DisplayValue,
		})
	}

	sort.SliceStable(opps, func(i, j int) bool { return opps[i].SavingsMs > opps[j].SavingsMs })
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].ID < diags[j].ID })

	return opps, diags
}
