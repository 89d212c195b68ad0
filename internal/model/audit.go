// Package model defines the audit pipeline's persisted record types.
package model

import "time"

// ScheduleType identifies what triggered an audit run.
type ScheduleType string

const (
	ScheduleManual  ScheduleType = "manual"
	ScheduleNightly ScheduleType = "nightly"
	ScheduleWeekly  ScheduleType = "weekly"
)

// RunStatus is the lifecycle state of an audit run. A run is created
// already running; there is no pending state.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Severity ranks how urgently an issue needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IssueStatus is the dashboard lifecycle state of an issue. The pipeline
// only ever writes open; acknowledging or resolving is a dashboard concern.
type IssueStatus string

const IssueStatusOpen IssueStatus = "open"

// AuditRun is one invocation of the audit pipeline over a set of URLs.
type AuditRun struct {
	ID            string       `json:"id"`
	ScheduleType  ScheduleType `json:"schedule_type"`
	Status        RunStatus    `json:"status"`
	TotalURLs     int          `json:"total_urls"`
	ProcessedURLs int          `json:"processed_urls"`
	StartedAt     time.Time    `json:"started_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// LabMetrics holds synthetic performance measurements for one page load.
// Fields are nil when the measurement omitted that audit.
type LabMetrics struct {
	FirstContentfulPaintMs   *float64 `json:"first_contentful_paint_ms,omitempty"`
	LargestContentfulPaintMs *float64 `json:"largest_contentful_paint_ms,omitempty"`
	TotalBlockingTimeMs      *float64 `json:"total_blocking_time_ms,omitempty"`
	CumulativeLayoutShift    *float64 `json:"cumulative_layout_shift,omitempty"`
	SpeedIndexMs             *float64 `json:"speed_index_ms,omitempty"`
	TimeToInteractiveMs      *float64 `json:"time_to_interactive_ms,omitempty"`
}

// Opportunity is a remediation suggestion with an estimated time savings.
type Opportunity struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	SavingsMs   float64 `json:"savings_ms"`
}

// GSCStatus is the flattened Search Console verdict bag stored per URL.
type GSCStatus struct {
	IndexStatus     string `json:"index_status"`
	Reason          string `json:"reason,omitempty"`
	Verdict         string `json:"verdict,omitempty"`
	CoverageState   string `json:"coverage_state,omitempty"`
	IndexingState   string `json:"indexing_state,omitempty"`
	PageFetchState  string `json:"page_fetch_state,omitempty"`
	GoogleCanonical string `json:"google_canonical,omitempty"`
	UserCanonical   string `json:"user_canonical,omitempty"`
	MobileVerdict   string `json:"mobile_verdict,omitempty"`
	RichResults     string `json:"rich_results,omitempty"`
}

// AuditURLResult is one URL's measurement snapshot within a run.
// Immutable once written.
type AuditURLResult struct {
	ID              string        `json:"id"`
	RunID           string        `json:"run_id"`
	URL             string        `json:"url"`
	PageType        string        `json:"page_type"`
	MobileScore     *int          `json:"mobile_score,omitempty"`
	DesktopScore    *int          `json:"desktop_score,omitempty"`
	MobileSEOScore  *int          `json:"mobile_seo_score,omitempty"`
	DesktopSEOScore *int          `json:"desktop_seo_score,omitempty"`
	LabMetrics      *LabMetrics   `json:"lab_metrics,omitempty"`
	GSCStatus       *GSCStatus    `json:"gsc_status,omitempty"`
	Opportunities   []Opportunity `json:"opportunities,omitempty"`
	CheckedAt       time.Time     `json:"checked_at"`
}

// AuditIssue is one normalized finding on one URL within a run.
// Immutable once written; status transitions belong to the dashboard.
type AuditIssue struct {
	ID             string         `json:"id"`
	RunID          string         `json:"run_id"`
	URL            string         `json:"url"`
	Category       string         `json:"category"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Status         IssueStatus    `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}
