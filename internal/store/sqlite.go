package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brightway-clinics/seo-audit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and the store test suite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqldb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id             TEXT PRIMARY KEY,
	schedule_type  TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	total_urls     INTEGER NOT NULL DEFAULT 0,
	processed_urls INTEGER NOT NULL DEFAULT 0,
	started_at     DATETIME NOT NULL,
	completed_at   DATETIME
);

CREATE TABLE IF NOT EXISTS audit_url_results (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL REFERENCES audit_runs(id),
	url               TEXT NOT NULL,
	page_type         TEXT NOT NULL DEFAULT '',
	mobile_score      INTEGER,
	desktop_score     INTEGER,
	mobile_seo_score  INTEGER,
	desktop_seo_score INTEGER,
	lab_metrics       TEXT,
	gsc_status        TEXT,
	opportunities     TEXT,
	checked_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_issues (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES audit_runs(id),
	url            TEXT NOT NULL,
	category       TEXT NOT NULL,
	severity       TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	recommendation TEXT NOT NULL DEFAULT '',
	evidence       TEXT,
	status         TEXT NOT NULL DEFAULT 'open',
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_started_at ON audit_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_audit_url_results_run_id ON audit_url_results(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_issues_run_id ON audit_issues(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAuditRun(ctx context.Context, scheduleType model.ScheduleType, totalURLs int) (*model.AuditRun, error) {
	run := &model.AuditRun{
		ID:           uuid.New().String(),
		ScheduleType: scheduleType,
		Status:       model.RunStatusRunning,
		TotalURLs:    totalURLs,
		StartedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_runs (id, schedule_type, status, total_urls, processed_urls, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(scheduleType), string(run.Status), totalURLs, 0, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateAuditRunProgress(ctx context.Context, runID string, processedURLs int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET processed_urls = ? WHERE id = ?`,
		processedURLs, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run progress %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinalizeAuditRun(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET status = ?, completed_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finalize run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) InsertURLResult(ctx context.Context, result *model.AuditURLResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now().UTC()
	}

	metricsJSON, err := marshalNullableString(result.LabMetrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lab metrics")
	}
	gscJSON, err := marshalNullableString(result.GSCStatus)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal gsc status")
	}
	var oppsJSON sql.NullString
	if len(result.Opportunities) > 0 {
		b, err := json.Marshal(result.Opportunities)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal opportunities")
		}
		oppsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_url_results (id, run_id, url, page_type, mobile_score, desktop_score, mobile_seo_score, desktop_seo_score, lab_metrics, gsc_status, opportunities, checked_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.RunID, result.URL, result.PageType,
		result.MobileScore, result.DesktopScore, result.MobileSEOScore, result.DesktopSEOScore,
		metricsJSON, gscJSON, oppsJSON, result.CheckedAt,
	)
	return eris.Wrapf(err, "sqlite: insert url result for %s", result.URL)
}

func (s *SQLiteStore) InsertIssues(ctx context.Context, runID, url string, issues []model.AuditIssue) error {
	now := time.Now().UTC()
	for i := range issues {
		is := &issues[i]
		if is.ID == "" {
			is.ID = uuid.New().String()
		}
		is.RunID = runID
		is.URL = url
		if is.Status == "" {
			is.Status = model.IssueStatusOpen
		}
		if is.CreatedAt.IsZero() {
			is.CreatedAt = now
		}

		var evidenceJSON sql.NullString
		if is.Evidence != nil {
			b, err := json.Marshal(is.Evidence)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal evidence")
			}
			evidenceJSON = sql.NullString{String: string(b), Valid: true}
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO audit_issues (id, run_id, url, category, severity, title, description, recommendation, evidence, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			is.ID, is.RunID, is.URL, is.Category, string(is.Severity),
			is.Title, is.Description, is.Recommendation, evidenceJSON, string(is.Status), is.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert issue for %s", url)
		}
	}
	return nil
}

func (s *SQLiteStore) GetAuditRun(ctx context.Context, runID string) (*model.AuditRun, error) {
	var r model.AuditRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at FROM audit_runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.ScheduleType, &r.Status, &r.TotalURLs, &r.ProcessedURLs, &r.StartedAt, &r.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return &r, nil
}

func (s *SQLiteStore) GetAuditRunResults(ctx context.Context, runID string) (*RunResults, error) {
	run, err := s.GetAuditRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	urls, err := s.listURLResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	issues, err := s.listIssues(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &RunResults{
		Run:     run,
		URLs:    urls,
		Issues:  issues,
		Summary: summarize(run, urls, issues),
	}, nil
}

func (s *SQLiteStore) listURLResults(ctx context.Context, runID string) ([]model.AuditURLResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, url, page_type, mobile_score, desktop_score, mobile_seo_score, desktop_seo_score, lab_metrics, gsc_status, opportunities, checked_at
		 FROM audit_url_results WHERE run_id = ? ORDER BY checked_at ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list url results")
	}
	defer rows.Close()

	var results []model.AuditURLResult
	for rows.Next() {
		var u model.AuditURLResult
		var metricsJSON, gscJSON, oppsJSON sql.NullString
		if err := rows.Scan(&u.ID, &u.RunID, &u.URL, &u.PageType,
			&u.MobileScore, &u.DesktopScore, &u.MobileSEOScore, &u.DesktopSEOScore,
			&metricsJSON, &gscJSON, &oppsJSON, &u.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan url result")
		}
		if metricsJSON.Valid {
			u.LabMetrics = &model.LabMetrics{}
			if err := json.Unmarshal([]byte(metricsJSON.String), u.LabMetrics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal lab metrics")
			}
		}
		if gscJSON.Valid {
			u.GSCStatus = &model.GSCStatus{}
			if err := json.Unmarshal([]byte(gscJSON.String), u.GSCStatus); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal gsc status")
			}
		}
		if oppsJSON.Valid {
			if err := json.Unmarshal([]byte(oppsJSON.String), &u.Opportunities); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal opportunities")
			}
		}
		results = append(results, u)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list url results iterate")
}

func (s *SQLiteStore) listIssues(ctx context.Context, runID string) ([]model.AuditIssue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, url, category, severity, title, description, recommendation, evidence, status, created_at
		 FROM audit_issues WHERE run_id = ? ORDER BY created_at ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list issues")
	}
	defer rows.Close()

	var issues []model.AuditIssue
	for rows.Next() {
		var is model.AuditIssue
		var evidenceJSON sql.NullString
		if err := rows.Scan(&is.ID, &is.RunID, &is.URL, &is.Category, &is.Severity,
			&is.Title, &is.Description, &is.Recommendation, &evidenceJSON, &is.Status, &is.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan issue")
		}
		if evidenceJSON.Valid {
			if err := json.Unmarshal([]byte(evidenceJSON.String), &is.Evidence); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal evidence")
			}
		}
		issues = append(issues, is)
	}
	return issues, eris.Wrap(rows.Err(), "sqlite: list issues iterate")
}

func (s *SQLiteStore) ListAuditRuns(ctx context.Context, limit int) ([]model.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at
		 FROM audit_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AuditRun
	for rows.Next() {
		var r model.AuditRun
		if err := rows.Scan(&r.ID, &r.ScheduleType, &r.Status, &r.TotalURLs, &r.ProcessedURLs, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func marshalNullableString(v any) (sql.NullString, error) {
	b, err := marshalNullable(v)
	if err != nil || b == nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
