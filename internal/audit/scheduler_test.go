package audit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightway-clinics/seo-audit/internal/config"
	"github.com/brightway-clinics/seo-audit/internal/model"
)

type recordingRunner struct {
	mu   sync.Mutex
	runs []RunConfig
}

func (r *recordingRunner) RunAudit(_ context.Context, cfg RunConfig) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, cfg)
	return "run-1", nil
}

func (r *recordingRunner) StartAudit(ctx context.Context, cfg RunConfig) (string, error) {
	return r.RunAudit(ctx, cfg)
}

func TestNewScheduler(t *testing.T) {
	sched, err := NewScheduler(&recordingRunner{}, config.ScheduleConfig{
		Nightly:  "0 3 * * *",
		Weekly:   "0 4 * * 0",
		Timezone: "America/New_York",
	})

	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Len(t, sched.cron.Entries(), 2)
}

func TestNewScheduler_BadNightlySpec(t *testing.T) {
	_, err := NewScheduler(&recordingRunner{}, config.ScheduleConfig{
		Nightly:  "not a cron spec",
		Weekly:   "0 4 * * 0",
		Timezone: "UTC",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse nightly spec")
}

func TestNewScheduler_BadWeeklySpec(t *testing.T) {
	_, err := NewScheduler(&recordingRunner{}, config.ScheduleConfig{
		Nightly:  "0 3 * * *",
		Weekly:   "99 99 * * *",
		Timezone: "UTC",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse weekly spec")
}

func TestNewScheduler_BadTimezone(t *testing.T) {
	_, err := NewScheduler(&recordingRunner{}, config.ScheduleConfig{
		Nightly:  "0 3 * * *",
		Weekly:   "0 4 * * 0",
		Timezone: "Mars/Olympus",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load timezone")
}

func TestScheduler_TriggerRunsBothSources(t *testing.T) {
	runner := &recordingRunner{}
	sched, err := NewScheduler(runner, config.ScheduleConfig{
		Nightly:  "0 3 * * *",
		Weekly:   "0 4 * * 0",
		Timezone: "UTC",
	})
	require.NoError(t, err)

	sched.trigger(model.ScheduleNightly)
	sched.trigger(model.ScheduleWeekly)

	require.Len(t, runner.runs, 2)

	nightly := runner.runs[0]
	assert.Equal(t, model.ScheduleNightly, nightly.ScheduleType)
	assert.Empty(t, nightly.URLs)
	assert.True(t, nightly.IncludePageSpeed)
	assert.True(t, nightly.IncludeGSC)

	assert.Equal(t, model.ScheduleWeekly, runner.runs[1].ScheduleType)
}

func TestScheduler_StartStop(t *testing.T) {
	sched, err := NewScheduler(&recordingRunner{}, config.ScheduleConfig{
		Nightly:  "0 3 * * *",
		Weekly:   "0 4 * * 0",
		Timezone: "UTC",
	})
	require.NoError(t, err)

	sched.Start()
	sched.Stop()
}
