package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightway-clinics/seo-audit/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateAuditRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audit_runs`).
		WithArgs(pgxmock.AnyArg(), "nightly", "running", 10, 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateAuditRun(context.Background(), model.ScheduleNightly, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, 10, run.TotalURLs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audit_runs SET processed_urls`).
		WithArgs(3, "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateAuditRunProgress(context.Background(), "run-1", 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProgress_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audit_runs SET processed_urls`).
		WithArgs(1, "nonexistent").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAuditRunProgress(context.Background(), "nonexistent", 1)
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinalizeRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE audit_runs SET status`).
		WithArgs("completed", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FinalizeAuditRun(context.Background(), "run-1", model.RunStatusCompleted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAuditRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Now().UTC().Add(-time.Minute)
	completed := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at FROM audit_runs`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "schedule_type", "status", "total_urls", "processed_urls", "started_at", "completed_at",
		}).AddRow("run-1", "weekly", "completed", 22, 22, started, &completed))

	run, err := s.GetAuditRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.ScheduleWeekly, run.ScheduleType)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 22, run.ProcessedURLs)
	require.NotNil(t, run.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAuditRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at FROM audit_runs`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAuditRun(context.Background(), "nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertURLResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audit_url_results`).
		WithArgs(pgxmock.AnyArg(), "run-1", "https://www.brightwayclinics.com/", "homepage",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	result := &model.AuditURLResult{
		RunID:       "run-1",
		URL:         "https://www.brightwayclinics.com/",
		PageType:    "homepage",
		MobileScore: intPtr(42),
		LabMetrics:  &model.LabMetrics{LargestContentfulPaintMs: floatPtr(4200)},
	}
	err := s.InsertURLResult(context.Background(), result)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.False(t, result.CheckedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertIssues(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO audit_issues`).
		WithArgs(pgxmock.AnyArg(), "run-1", "https://www.brightwayclinics.com/",
			"performance", "critical", "Poor mobile performance score",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "open", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	issues := []model.AuditIssue{{
		Category: "performance",
		Severity: model.SeverityCritical,
		Title:    "Poor mobile performance score",
	}}
	err := s.InsertIssues(context.Background(), "run-1", "https://www.brightwayclinics.com/", issues)
	require.NoError(t, err)
	assert.Equal(t, "run-1", issues[0].RunID)
	assert.Equal(t, model.IssueStatusOpen, issues[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS audit_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
