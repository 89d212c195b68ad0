package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brightway-clinics/seo-audit/internal/model"
	"github.com/brightway-clinics/seo-audit/internal/store"
	"github.com/brightway-clinics/seo-audit/pkg/pagespeed"
)

// RunConfig selects what an audit run covers.
type RunConfig struct {
	ScheduleType     model.ScheduleType
	URLs             []string // optional override; audited verbatim, tagged custom
	IncludePageSpeed bool
	IncludeGSC       bool
}

// AuditRunner is the orchestrator surface the scheduler and HTTP trigger
// depend on.
type AuditRunner interface {
	RunAudit(ctx context.Context, cfg RunConfig) (string, error)
	StartAudit(ctx context.Context, cfg RunConfig) (string, error)
}

// target is one URL scheduled for measurement within a run.
type target struct {
	URL      string
	PageType string
}

// Orchestrator owns the audit run lifecycle: it resolves the URL set,
// creates the run record, walks URLs strictly sequentially, and finalizes
// the run status. URLs are sequential on purpose: both external APIs are
// quota-bound.
type Orchestrator struct {
	store     store.Store
	prober    PerfProber
	inspector IndexInspector
	baseURL   string
	delay     time.Duration
}

// NewOrchestrator wires the orchestrator. delay is the pause between URLs;
// it is not applied after the last URL.
func NewOrchestrator(st store.Store, prober PerfProber, inspector IndexInspector, baseURL string, delay time.Duration) *Orchestrator {
	return &Orchestrator{
		store:     st,
		prober:    prober,
		inspector: inspector,
		baseURL:   baseURL,
		delay:     delay,
	}
}

// RunAudit executes one audit run to completion and returns its id. The
// returned error is non-nil only for run-level failures; individual URL
// failures become audit-error issues and never abort the run.
func (o *Orchestrator) RunAudit(ctx context.Context, cfg RunConfig) (string, error) {
	targets := o.resolveTargets(cfg)

	run, err := o.store.CreateAuditRun(ctx, cfg.ScheduleType, len(targets))
	if err != nil {
		return "", eris.Wrap(err, "audit: create run")
	}

	return run.ID, o.execute(ctx, run.ID, targets, cfg)
}

// StartAudit creates the run record, then continues the audit in the
// background. The returned id is immediately usable for progress polling.
func (o *Orchestrator) StartAudit(ctx context.Context, cfg RunConfig) (string, error) {
	targets := o.resolveTargets(cfg)

	run, err := o.store.CreateAuditRun(ctx, cfg.ScheduleType, len(targets))
	if err != nil {
		return "", eris.Wrap(err, "audit: create run")
	}

	go func() {
		if err := o.execute(context.WithoutCancel(ctx), run.ID, targets, cfg); err != nil {
			zap.L().Error("audit: background run failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}()

	return run.ID, nil
}

func (o *Orchestrator) resolveTargets(cfg RunConfig) []target {
	if len(cfg.URLs) > 0 {
		targets := make([]target, 0, len(cfg.URLs))
		for _, u := range cfg.URLs {
			targets = append(targets, target{URL: u, PageType: model.PageTypeCustom})
		}
		return targets
	}

	pages := model.PriorityPages
	if cfg.ScheduleType == model.ScheduleNightly {
		pages = model.NightlyPages()
	}
	targets := make([]target, 0, len(pages))
	for _, p := range pages {
		targets = append(targets, target{URL: model.ResolveURL(o.baseURL, p.Path), PageType: p.PageType})
	}
	return targets
}

func (o *Orchestrator) execute(ctx context.Context, runID string, targets []target, cfg RunConfig) error {
	zap.L().Info("audit: run started",
		zap.String("run_id", runID),
		zap.String("schedule", string(cfg.ScheduleType)),
		zap.Int("urls", len(targets)),
	)

	var runErr error
	for i, t := range targets {
		if err := o.processTarget(ctx, runID, t, cfg); err != nil {
			zap.L().Error("audit: url processing failed",
				zap.String("run_id", runID),
				zap.String("url", t.URL),
				zap.Error(err),
			)
			issue := model.AuditIssue{
				Category:       CategoryAuditError,
				Severity:       model.SeverityHigh,
				Title:          fmt.Sprintf("Audit failed for %s", t.URL),
				Description:    err.Error(),
				Recommendation: "Inspect the error and re-run the audit; other URLs in this run were unaffected.",
			}
			if ierr := o.store.InsertIssues(ctx, runID, t.URL, []model.AuditIssue{issue}); ierr != nil {
				zap.L().Error("audit: failed to record audit-error issue",
					zap.String("run_id", runID),
					zap.String("url", t.URL),
					zap.Error(ierr),
				)
			}
		}

		// Progress is persisted before the next URL starts so a polling
		// dashboard sees monotonically increasing counts and can rely on
		// the first k results being durable.
		if err := o.store.UpdateAuditRunProgress(ctx, runID, i+1); err != nil {
			zap.L().Warn("audit: progress update failed",
				zap.String("run_id", runID),
				zap.Error(err),
			)
		}

		if i+1 < len(targets) {
			if err := sleepCtx(ctx, o.delay); err != nil {
				runErr = eris.Wrap(err, "audit: run interrupted")
				break
			}
		}
	}

	status := model.RunStatusCompleted
	if runErr != nil {
		status = model.RunStatusFailed
	}
	// Finalization must not be lost to the cancellation that aborted the run.
	if err := o.store.FinalizeAuditRun(context.WithoutCancel(ctx), runID, status); err != nil {
		if runErr == nil {
			runErr = eris.Wrap(err, "audit: finalize run")
		}
	}

	zap.L().Info("audit: run finished",
		zap.String("run_id", runID),
		zap.String("status", string(status)),
	)

	return runErr
}

// processTarget measures and persists one URL. Panics are converted to
// errors so a single URL can never take down the run.
func (o *Orchestrator) processTarget(ctx context.Context, runID string, t target, cfg RunConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("audit: panic while processing %s: %v", t.URL, r)
		}
	}()

	var mobile, desktop *PerformanceResult
	var issues []model.AuditIssue

	if cfg.IncludePageSpeed {
		// The two device strategies run concurrently with each other, but
		// never with other URLs.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			mobile = o.prober.Probe(gctx, t.URL, pagespeed.StrategyMobile)
			return nil
		})
		g.Go(func() error {
			desktop = o.prober.Probe(gctx, t.URL, pagespeed.StrategyDesktop)
			return nil
		})
		_ = g.Wait() // probes report failures through their Error field

		issues = append(issues, ClassifyPerformance(mobile)...)
		issues = append(issues, ClassifyPerformance(desktop)...)
	}

	var insp *IndexInspection
	if cfg.IncludeGSC {
		insp = o.inspector.Inspect(ctx, t.URL)
		issues = append(issues, ClassifyInspection(insp)...)
	}

	result := buildURLResult(runID, t, mobile, desktop, insp)
	if err := o.store.InsertURLResult(ctx, result); err != nil {
		return eris.Wrapf(err, "audit: persist result for %s", t.URL)
	}
	if len(issues) > 0 {
		if err := o.store.InsertIssues(ctx, runID, t.URL, issues); err != nil {
			return eris.Wrapf(err, "audit: persist issues for %s", t.URL)
		}
	}

	return nil
}

func buildURLResult(runID string, t target, mobile, desktop *PerformanceResult, insp *IndexInspection) *model.AuditURLResult {
	result := &model.AuditURLResult{
		RunID:     runID,
		URL:       t.URL,
		PageType:  t.PageType,
		CheckedAt: time.Now().UTC(),
	}

	if mobile != nil && mobile.Error == "" {
		result.MobileScore = mobile.PerformanceScore
		result.MobileSEOScore = mobile.SEOScore
		metrics := mobile.Metrics
		result.LabMetrics = &metrics
		result.Opportunities = mobile.Opportunities
	}
	if desktop != nil && desktop.Error == "" {
		result.DesktopScore = desktop.PerformanceScore
		result.DesktopSEOScore = desktop.SEOScore
		if result.LabMetrics == nil {
			metrics := desktop.Metrics
			result.LabMetrics = &metrics
		}
		if result.Opportunities == nil {
			result.Opportunities = desktop.Opportunities
		}
	}

	if insp != nil && insp.Error == "" {
		cls := ClassifyIndexStatus(insp)
		gsc := &model.GSCStatus{
			IndexStatus: string(cls.Status),
			Reason:      cls.Reason,
		}
		if st := insp.IndexStatus; st != nil {
			gsc.Verdict = st.Verdict
			gsc.CoverageState = st.CoverageState
			gsc.IndexingState = st.IndexingState
			gsc.PageFetchState = st.PageFetchState
			gsc.GoogleCanonical = st.GoogleCanonical
			gsc.UserCanonical = st.UserCanonical
		}
		if mu := insp.MobileUsability; mu != nil {
			gsc.MobileVerdict = mu.Verdict
		}
		if rr := insp.RichResults; rr != nil {
			gsc.RichResults = rr.Verdict
		}
		result.GSCStatus = gsc
	}

	return result
}

// sleepCtx pauses for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
