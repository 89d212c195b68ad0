package audit

import (
	"fmt"
	"strings"

	"github.com/brightway-clinics/seo-audit/internal/model"
)

// Classification thresholds. Values mirror the dashboard's published scoring
// policy; changing them changes which findings customers see, so they are
// constants rather than config.
const (
	perfScorePoor = 50
	perfScoreGood = 90

	seoScoreGood      = 90
	seoScoreHighBelow = 70

	lcpGoodMs = 2500
	lcpPoorMs = 4000
	clsGood   = 0.1
	clsPoor   = 0.25
	tbtGoodMs = 200
	tbtPoorMs = 600
	fcpGoodMs = 1800
	fcpPoorMs = 3000
	siGoodMs  = 3400
	siPoorMs  = 5800
	ttiGoodMs = 3800
	ttiPoorMs = 7300

	opportunityMinSavingsMs  = 500
	opportunityHighSavingsMs = 2000
	topOpportunities         = 3
)

// Issue categories.
const (
	CategoryPerformance     = "performance"
	CategorySEO             = "seo"
	CategoryCWV             = "cwv"
	CategoryOpportunity     = "opportunity"
	CategoryIndexing        = "indexing"
	CategoryCanonical       = "canonical"
	CategoryMobileUsability = "mobile-usability"
	CategoryPSIError        = "psi-error"
	CategoryGSCError        = "gsc-error"
	CategoryAuditError      = "audit-error"
)

// Metric ratings for dashboard display.
const (
	RatingGood             = "good"
	RatingNeedsImprovement = "needs-improvement"
	RatingPoor             = "poor"
)

func rating(value, good, poor float64) string {
	switch {
	case value <= good:
		return RatingGood
	case value > poor:
		return RatingPoor
	default:
		return RatingNeedsImprovement
	}
}

// MetricRatings classifies each present lab metric as good,
// needs-improvement, or poor for dashboard display.
func MetricRatings(m *model.LabMetrics) map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	if m.FirstContentfulPaintMs != nil {
		out["fcp"] = rating(*m.FirstContentfulPaintMs, fcpGoodMs, fcpPoorMs)
	}
	if m.LargestContentfulPaintMs != nil {
		out["lcp"] = rating(*m.LargestContentfulPaintMs, lcpGoodMs, lcpPoorMs)
	}
	if m.TotalBlockingTimeMs != nil {
		out["tbt"] = rating(*m.TotalBlockingTimeMs, tbtGoodMs, tbtPoorMs)
	}
	if m.CumulativeLayoutShift != nil {
		out["cls"] = rating(*m.CumulativeLayoutShift, clsGood, clsPoor)
	}
	if m.SpeedIndexMs != nil {
		out["si"] = rating(*m.SpeedIndexMs, siGoodMs, siPoorMs)
	}
	if m.TimeToInteractiveMs != nil {
		out["tti"] = rating(*m.TimeToInteractiveMs, ttiGoodMs, ttiPoorMs)
	}
	return out
}

// ClassifyPerformance maps one strategy's probe result to issue drafts.
// Drafts carry category, severity, and the human-readable strings; the
// orchestrator attaches run/URL identity at persistence time. The function
// is pure: identical input yields an identical issue list.
func ClassifyPerformance(res *PerformanceResult) []model.AuditIssue {
	if res == nil {
		return nil
	}
	strategy := string(res.Strategy)

	if res.Error != "" {
		return []model.AuditIssue{{
			Category:       CategoryPSIError,
			Severity:       model.SeverityHigh,
			Title:          fmt.Sprintf("PageSpeed probe failed (%s)", strategy),
			Description:    res.Error,
			Recommendation: "Re-run the audit once the PageSpeed API is reachable; no scores were recorded for this strategy.",
		}}
	}

	var issues []model.AuditIssue

	if s := res.PerformanceScore; s != nil {
		switch {
		case *s < perfScorePoor:
			issues = append(issues, model.AuditIssue{
				Category:       CategoryPerformance,
				Severity:       model.SeverityCritical,
				Title:          fmt.Sprintf("Poor %s performance score", strategy),
				Description:    fmt.Sprintf("The %s performance score is %d, below the acceptable threshold of %d.", strategy, *s, perfScorePoor),
				Recommendation: "Prioritize the top opportunities below; scores under 50 typically lose mobile bookings.",
				Evidence:       map[string]any{"score": *s, "strategy": strategy},
			})
		case *s < perfScoreGood:
			issues = append(issues, model.AuditIssue{
				Category:       CategoryPerformance,
				Severity:       model.SeverityMedium,
				Title:          fmt.Sprintf("%s performance needs improvement", strategy),
				Description:    fmt.Sprintf("The %s performance score is %d; 90 or above is considered good.", strategy, *s),
				Recommendation: "Work through the listed opportunities to move the score above 90.",
				Evidence:       map[string]any{"score": *s, "strategy": strategy},
			})
		}
	}

	if s := res.SEOScore; s != nil && *s < seoScoreGood {
		sev := model.SeverityMedium
		if *s < seoScoreHighBelow {
			sev = model.SeverityHigh
		}
		issues = append(issues, model.AuditIssue{
			Category:       CategorySEO,
			Severity:       sev,
			Title:          fmt.Sprintf("Low %s SEO score", strategy),
			Description:    fmt.Sprintf("The %s SEO score is %d; 90 or above is considered good.", strategy, *s),
			Recommendation: "Review meta tags, heading structure, and crawlability for this page.",
			Evidence:       map[string]any{"score": *s, "strategy": strategy},
		})
	}

	issues = append(issues, classifyWebVitals(strategy, res.Metrics)...)
	issues = append(issues, classifyOpportunities(strategy, res.Opportunities)...)

	return issues
}

func classifyWebVitals(strategy string, m model.LabMetrics) []model.AuditIssue {
	var issues []model.AuditIssue

	if v := m.LargestContentfulPaintMs; v != nil && rating(*v, lcpGoodMs, lcpPoorMs) == RatingPoor {
		issues = append(issues, model.AuditIssue{
			Category:       CategoryCWV,
			Severity:       model.SeverityCritical,
			Title:          fmt.Sprintf("Poor LCP on %s", strategy),
			Description:    fmt.Sprintf("Largest Contentful Paint is %.0fms; anything over %dms is rated poor.", *v, lcpPoorMs),
			Recommendation: "Optimize the hero image and reduce render-blocking resources to bring LCP under 2.5s.",
			Evidence:       map[string]any{"lcp_ms": *v, "strategy": strategy},
		})
	}
	if v := m.CumulativeLayoutShift; v != nil && rating(*v, clsGood, clsPoor) == RatingPoor {
		issues = append(issues, model.AuditIssue{
			Category:       CategoryCWV,
			Severity:       model.SeverityHigh,
			Title:          fmt.Sprintf("Poor CLS on %s", strategy),
			Description:    fmt.Sprintf("Cumulative Layout Shift is %.3f; anything over %.2f is rated poor.", *v, clsPoor),
			Recommendation: "Reserve space for images, embeds, and injected banners so content does not shift during load.",
			Evidence:       map[string]any{"cls": *v, "strategy": strategy},
		})
	}
	if v := m.TotalBlockingTimeMs; v != nil && rating(*v, tbtGoodMs, tbtPoorMs) == RatingPoor {
		issues = append(issues, model.AuditIssue{
			Category:       CategoryCWV,
			Severity:       model.SeverityHigh,
			Title:          fmt.Sprintf("Poor TBT on %s", strategy),
			Description:    fmt.Sprintf("Total Blocking Time is %.0fms; anything over %dms is rated poor.", *v, tbtPoorMs),
			Recommendation: "Split long JavaScript tasks and defer third-party scripts to keep the main thread responsive.",
			Evidence:       map[string]any{"tbt_ms": *v, "strategy": strategy},
		})
	}

	return issues
}

func classifyOpportunities(strategy string, opps []model.Opportunity) []model.AuditIssue {
	var issues []model.AuditIssue

	top := opps
	if len(top) > topOpportunities {
		top = top[:topOpportunities]
	}
	for _, opp := range top {
		if opp.SavingsMs <= opportunityMinSavingsMs {
			continue
		}
		sev := model.SeverityMedium
		if opp.SavingsMs > opportunityHighSavingsMs {
			sev = model.SeverityHigh
		}
		issues = append(issues, model.AuditIssue{
			Category:       CategoryOpportunity,
			Severity:       sev,
			Title:          fmt.Sprintf("%s: %s", strategy, opp.Title),
			Description:    opp.Description,
			Recommendation: fmt.Sprintf("Estimated savings of %.1fs.", opp.SavingsMs/1000),
			Evidence:       map[string]any{"savings_ms": opp.SavingsMs, "audit_id": opp.ID, "strategy": strategy},
		})
	}

	return issues
}

// ClassifyInspection maps the index inspection to issue drafts. Pure, like
// ClassifyPerformance.
func ClassifyInspection(insp *IndexInspection) []model.AuditIssue {
	if insp == nil {
		return nil
	}

	if insp.Error != "" {
		return []model.AuditIssue{{
			Category:       CategoryGSCError,
			Severity:       model.SeverityMedium,
			Title:          "Search Console inspection failed",
			Description:    insp.Error,
			Recommendation: "Re-run the audit once the Search Console API is reachable; no index verdicts were recorded.",
		}}
	}

	var issues []model.AuditIssue

	if cls := ClassifyIndexStatus(insp); cls.Status == IndexStateNotIndexed {
		issues = append(issues, model.AuditIssue{
			Category:       CategoryIndexing,
			Severity:       model.SeverityCritical,
			Title:          "Page is not indexed",
			Description:    fmt.Sprintf("Search Console reports this page as not indexed: %s.", cls.Reason),
			Recommendation: "Verify the page is crawlable and request indexing in Search Console.",
			Evidence:       map[string]any{"reason": cls.Reason},
		})
	}

	if st := insp.IndexStatus; st != nil && st.GoogleCanonical != "" && st.UserCanonical != "" && st.GoogleCanonical != st.UserCanonical {
		issues = append(issues, model.AuditIssue{
			Category:       CategoryCanonical,
			Severity:       model.SeverityHigh,
			Title:          "Canonical URL mismatch",
			Description:    "Google selected a different canonical URL than the one declared by the page.",
			Recommendation: "Align the declared canonical with the URL Google selects, or fix the signals causing the override.",
			Evidence: map[string]any{
				"google_canonical": st.GoogleCanonical,
				"user_canonical":   st.UserCanonical,
			},
		})
	}

	if mu := insp.MobileUsability; mu != nil && mu.Verdict == "FAIL" && len(mu.Issues) > 0 {
		for _, sub := range mu.Issues {
			sev := model.SeverityMedium
			if strings.EqualFold(sub.Severity, "error") {
				sev = model.SeverityHigh
			}
			issues = append(issues, model.AuditIssue{
				Category:       CategoryMobileUsability,
				Severity:       sev,
				Title:          fmt.Sprintf("Mobile usability: %s", sub.IssueType),
				Description:    sub.Message,
				Recommendation: "Fix the flagged element so the page passes the mobile usability check.",
				Evidence:       map[string]any{"issue_type": sub.IssueType, "severity": sub.Severity},
			})
		}
	}

	return issues
}
