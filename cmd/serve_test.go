package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightway-clinics/seo-audit/internal/audit"
	"github.com/brightway-clinics/seo-audit/internal/model"
	"github.com/brightway-clinics/seo-audit/internal/store"
)

// fakeStore serves canned runs for router tests.
type fakeStore struct {
	runs map[string]*model.AuditRun
}

func (f *fakeStore) CreateAuditRun(context.Context, model.ScheduleType, int) (*model.AuditRun, error) {
	return nil, nil
}
func (f *fakeStore) UpdateAuditRunProgress(context.Context, string, int) error { return nil }
func (f *fakeStore) FinalizeAuditRun(context.Context, string, model.RunStatus) error {
	return nil
}
func (f *fakeStore) InsertURLResult(context.Context, *model.AuditURLResult) error { return nil }
func (f *fakeStore) InsertIssues(context.Context, string, string, []model.AuditIssue) error {
	return nil
}

func (f *fakeStore) GetAuditRun(_ context.Context, runID string) (*model.AuditRun, error) {
	run, ok := f.runs[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return run, nil
}

func (f *fakeStore) GetAuditRunResults(ctx context.Context, runID string) (*store.RunResults, error) {
	run, err := f.GetAuditRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &store.RunResults{Run: run, Summary: store.Summary{TotalURLs: run.TotalURLs}}, nil
}

func (f *fakeStore) ListAuditRuns(context.Context, int) ([]model.AuditRun, error) {
	var runs []model.AuditRun
	for _, r := range f.runs {
		runs = append(runs, *r)
	}
	return runs, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

type fakeRunner struct {
	lastConfig audit.RunConfig
	runID      string
}

func (f *fakeRunner) RunAudit(_ context.Context, cfg audit.RunConfig) (string, error) {
	f.lastConfig = cfg
	return f.runID, nil
}

func (f *fakeRunner) StartAudit(ctx context.Context, cfg audit.RunConfig) (string, error) {
	return f.RunAudit(ctx, cfg)
}

func testRouterEnv() (*fakeStore, *fakeRunner, http.Handler) {
	st := &fakeStore{runs: map[string]*model.AuditRun{
		"run-1": {
			ID:            "run-1",
			ScheduleType:  model.ScheduleManual,
			Status:        model.RunStatusRunning,
			TotalURLs:     5,
			ProcessedURLs: 2,
			StartedAt:     time.Now().UTC(),
		},
	}}
	runner := &fakeRunner{runID: "run-2"}
	return st, runner, newRouter(st, runner)
}

func TestServeHealth(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeStartAudit(t *testing.T) {
	_, runner, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader(`{"urls":["https://clinic.test/a"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"run_id":"run-2"}`, rec.Body.String())

	assert.Equal(t, model.ScheduleManual, runner.lastConfig.ScheduleType)
	assert.Equal(t, []string{"https://clinic.test/a"}, runner.lastConfig.URLs)
	assert.True(t, runner.lastConfig.IncludePageSpeed)
	assert.True(t, runner.lastConfig.IncludeGSC)
}

func TestServeStartAudit_EmptyBody(t *testing.T) {
	_, runner, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/audits", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, runner.lastConfig.URLs)
}

func TestServeStartAudit_ManualScheduleType(t *testing.T) {
	_, runner, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader(`{"schedule_type":"manual"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, model.ScheduleManual, runner.lastConfig.ScheduleType)
}

func TestServeStartAudit_RejectsNonManualScheduleType(t *testing.T) {
	_, runner, router := testRouterEnv()

	for _, st := range []string{"nightly", "weekly", "bogus"} {
		req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader(`{"schedule_type":"`+st+`"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "schedule_type %s", st)
	}
	assert.Empty(t, runner.lastConfig.ScheduleType)
}

func TestServeStartAudit_BadBody(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeGetAudit(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/audits/run-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var run model.AuditRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 2, run.ProcessedURLs)
}

func TestServeGetAudit_NotFound(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/audits/nonexistent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeGetAuditResults(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/audits/run-1/results", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var results store.RunResults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.NotNil(t, results.Run)
	assert.Equal(t, "run-1", results.Run.ID)
	assert.Equal(t, 5, results.Summary.TotalURLs)
}

func TestServeListAudits(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/audits?limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []model.AuditRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Runs, 1)
}

func TestServeListAudits_BadLimit(t *testing.T) {
	_, _, router := testRouterEnv()

	req := httptest.NewRequest(http.MethodGet, "/api/audits?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
