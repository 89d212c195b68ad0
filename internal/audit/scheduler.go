package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brightway-clinics/seo-audit/internal/config"
	"github.com/brightway-clinics/seo-audit/internal/model"
)

// Scheduler triggers audits on fixed cron schedules: a nightly run over the
// priority subset and a weekly run over the full page list. It holds no
// state beyond the schedule definitions.
type Scheduler struct {
	runner AuditRunner
	cron   *cron.Cron
}

// NewScheduler registers the nightly and weekly triggers. Cron expressions
// use the standard 5-field format, evaluated in the configured timezone.
func NewScheduler(runner AuditRunner, cfg config.ScheduleConfig) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "scheduler: load timezone %s", cfg.Timezone)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	s := &Scheduler{runner: runner, cron: c}

	if _, err := c.AddFunc(cfg.Nightly, func() { s.trigger(model.ScheduleNightly) }); err != nil {
		return nil, eris.Wrapf(err, "scheduler: parse nightly spec %q", cfg.Nightly)
	}
	if _, err := c.AddFunc(cfg.Weekly, func() { s.trigger(model.ScheduleWeekly) }); err != nil {
		return nil, eris.Wrapf(err, "scheduler: parse weekly spec %q", cfg.Weekly)
	}

	return s, nil
}

// Start begins evaluating the schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	zap.L().Info("scheduler: started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for any in-flight trigger to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.L().Info("scheduler: stopped")
}

func (s *Scheduler) trigger(scheduleType model.ScheduleType) {
	zap.L().Info("scheduler: audit starting", zap.String("schedule", string(scheduleType)))

	runID, err := s.runner.RunAudit(context.Background(), RunConfig{
		ScheduleType:     scheduleType,
		IncludePageSpeed: true,
		IncludeGSC:       true,
	})
	if err != nil {
		zap.L().Error("scheduler: audit failed",
			zap.String("schedule", string(scheduleType)),
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return
	}

	zap.L().Info("scheduler: audit complete",
		zap.String("schedule", string(scheduleType)),
		zap.String("run_id", runID),
	)
}
