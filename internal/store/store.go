// Package store persists audit runs, URL results, and issues.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/brightway-clinics/seo-audit/internal/model"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = eris.New("run not found")

// Summary aggregates one run's results for the dashboard.
type Summary struct {
	TotalURLs        int                    `json:"total_urls"`
	IssuesBySeverity map[model.Severity]int `json:"issues_by_severity"`
	AvgMobileScore   *float64               `json:"avg_mobile_score,omitempty"`
	AvgDesktopScore  *float64               `json:"avg_desktop_score,omitempty"`
}

// RunResults bundles everything the dashboard needs for one run.
type RunResults struct {
	Run     *model.AuditRun        `json:"run"`
	URLs    []model.AuditURLResult `json:"urls"`
	Issues  []model.AuditIssue     `json:"issues"`
	Summary Summary                `json:"summary"`
}

// Store defines the persistence interface for the audit pipeline.
// AuditURLResult and AuditIssue rows are immutable once written; the only
// updates are the run's progress counter and final status.
type Store interface {
	// Writes
	CreateAuditRun(ctx context.Context, scheduleType model.ScheduleType, totalURLs int) (*model.AuditRun, error)
	UpdateAuditRunProgress(ctx context.Context, runID string, processedURLs int) error
	FinalizeAuditRun(ctx context.Context, runID string, status model.RunStatus) error
	InsertURLResult(ctx context.Context, result *model.AuditURLResult) error
	InsertIssues(ctx context.Context, runID, url string, issues []model.AuditIssue) error

	// Reads
	GetAuditRun(ctx context.Context, runID string) (*model.AuditRun, error)
	GetAuditRunResults(ctx context.Context, runID string) (*RunResults, error)
	ListAuditRuns(ctx context.Context, limit int) ([]model.AuditRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// summarize builds the dashboard summary from fetched rows.
func summarize(run *model.AuditRun, urls []model.AuditURLResult, issues []model.AuditIssue) Summary {
	s := Summary{
		TotalURLs:        run.TotalURLs,
		IssuesBySeverity: map[model.Severity]int{},
	}
	for _, is := range issues {
		s.IssuesBySeverity[is.Severity]++
	}

	var mobileSum, desktopSum float64
	var mobileN, desktopN int
	for _, u := range urls {
		if u.MobileScore != nil {
			mobileSum += float64(*u.MobileScore)
			mobileN++
		}
		if u.DesktopScore != nil {
			desktopSum += float64(*u.DesktopScore)
			desktopN++
		}
	}
	if mobileN > 0 {
		avg := mobileSum / float64(mobileN)
		s.AvgMobileScore = &avg
	}
	if desktopN > 0 {
		avg := desktopSum / float64(desktopN)
		s.AvgDesktopScore = &avg
	}

	return s
}
