package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brightway-clinics/seo-audit/internal/db"
	"github.com/brightway-clinics/seo-audit/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// preparedStatements lists queries to prepare on each new connection. The
// per-URL write path (result, issues, progress) runs once per audited URL,
// so it carries the bulk of the traffic.
var preparedStatements = map[string]string{
	"insert_run":      `INSERT INTO audit_runs (id, schedule_type, status, total_urls, processed_urls, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_progress": `UPDATE audit_runs SET processed_urls = $1 WHERE id = $2`,
	"finalize_run":    `UPDATE audit_runs SET status = $1, completed_at = $2 WHERE id = $3`,
	"insert_result":   `INSERT INTO audit_url_results (id, run_id, url, page_type, mobile_score, desktop_score, mobile_seo_score, desktop_seo_score, lab_metrics, gsc_status, opportunities, checked_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"insert_issue":    `INSERT INTO audit_issues (id, run_id, url, category, severity, title, description, recommendation, evidence, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"get_run":         `SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at FROM audit_runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS audit_runs (
	id             TEXT PRIMARY KEY,
	schedule_type  TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'running',
	total_urls     INTEGER NOT NULL DEFAULT 0,
	processed_urls INTEGER NOT NULL DEFAULT 0,
	started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at   TIMESTAMPTZ
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
	lab_metrics       JSONB,
	gsc_status        JSONB,
	opportunities     JSONB,
	checked_at        TIMESTAMPTZ NOT NULL DEFAULT now()
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
	evidence       JSONB,
	status         TEXT NOT NULL DEFAULT 'open',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_runs_started_at ON audit_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_runs_status ON audit_runs(status);
CREATE INDEX IF NOT EXISTS idx_audit_url_results_run_id ON audit_url_results(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_issues_run_id ON audit_issues(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_issues_severity ON audit_issues(severity);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAuditRun(ctx context.Context, scheduleType model.ScheduleType, totalURLs int) (*model.AuditRun, error) {
	run := &model.AuditRun{
		ID:           uuid.New().String(),
		ScheduleType: scheduleType,
		Status:       model.RunStatusRunning,
		TotalURLs:    totalURLs,
		StartedAt:    time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_runs (id, schedule_type, status, total_urls, processed_urls, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(scheduleType), string(run.Status), totalURLs, 0, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateAuditRunProgress(ctx context.Context, runID string, processedURLs int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_runs SET processed_urls = $1 WHERE id = $2`,
		processedURLs, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run progress %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FinalizeAuditRun(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_runs SET status = $1, completed_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finalize run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s", runID)
	}
	return nil
}

func (s *PostgresStore) InsertURLResult(ctx context.Context, result *model.AuditURLResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now().UTC()
	}

	metricsJSON, err := marshalNullable(result.LabMetrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal lab metrics")
	}
	gscJSON, err := marshalNullable(result.GSCStatus)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal gsc status")
	}
	var oppsJSON []byte
	if len(result.Opportunities) > 0 {
		oppsJSON, err = json.Marshal(result.Opportunities)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal opportunities")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_url_results (id, run_id, url, page_type, mobile_score, desktop_score, mobile_seo_score, desktop_seo_score, lab_metrics, gsc_status, opportunities, checked_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		result.ID, result.RunID, result.URL, result.PageType,
		result.MobileScore, result.DesktopScore, result.MobileSEOScore, result.DesktopSEOScore,
		metricsJSON, gscJSON, oppsJSON, result.CheckedAt,
	)
	return eris.Wrapf(err, "postgres: insert url result for %s", result.URL)
}

func (s *PostgresStore) InsertIssues(ctx context.Context, runID, url string, issues []model.AuditIssue) error {
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

		var evidenceJSON []byte
		if is.Evidence != nil {
			var err error
			evidenceJSON, err = json.Marshal(is.Evidence)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal evidence")
			}
		}

		_, err := s.pool.Exec(ctx,
			`INSERT INTO audit_issues (id, run_id, url, category, severity, title, description, recommendation, evidence, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			is.ID, is.RunID, is.URL, is.Category, string(is.Severity),
			is.Title, is.Description, is.Recommendation, evidenceJSON, string(is.Status), is.CreatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert issue for %s", url)
		}
	}
	return nil
}

func (s *PostgresStore) GetAuditRun(ctx context.Context, runID string) (*model.AuditRun, error) {
	var r model.AuditRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at FROM audit_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.ScheduleType, &r.Status, &r.TotalURLs, &r.ProcessedURLs, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return &r, nil
}

func (s *PostgresStore) GetAuditRunResults(ctx context.Context, runID string) (*RunResults, error) {
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

func (s *PostgresStore) listURLResults(ctx context.Context, runID string) ([]model.AuditURLResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, url, page_type, mobile_score, desktop_score, mobile_seo_score, desktop_seo_score, lab_metrics, gsc_status, opportunities, checked_at
		 FROM audit_url_results WHERE run_id = $1 ORDER BY checked_at ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list url results")
	}
	defer rows.Close()

	var results []model.AuditURLResult
	for rows.Next() {
		var u model.AuditURLResult
		var metricsJSON, gscJSON, oppsJSON []byte
		if err := rows.Scan(&u.ID, &u.RunID, &u.URL, &u.PageType,
			&u.MobileScore, &u.DesktopScore, &u.MobileSEOScore, &u.DesktopSEOScore,
			&metricsJSON, &gscJSON, &oppsJSON, &u.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan url result")
		}
		if err := unmarshalNullable(metricsJSON, &u.LabMetrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lab metrics")
		}
		if err := unmarshalNullable(gscJSON, &u.GSCStatus); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal gsc status")
		}
		if len(oppsJSON) > 0 {
			if err := json.Unmarshal(oppsJSON, &u.Opportunities); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal opportunities")
			}
		}
		results = append(results, u)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list url results iterate")
}

func (s *PostgresStore) listIssues(ctx context.Context, runID string) ([]model.AuditIssue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, url, category, severity, title, description, recommendation, evidence, status, created_at
		 FROM audit_issues WHERE run_id = $1 ORDER BY created_at ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list issues")
	}
	defer rows.Close()

	var issues []model.AuditIssue
	for rows.Next() {
		var is model.AuditIssue
		var evidenceJSON []byte
		if err := rows.Scan(&is.ID, &is.RunID, &is.URL, &is.Category, &is.Severity,
			&is.Title, &is.Description, &is.Recommendation, &evidenceJSON, &is.Status, &is.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan issue")
		}
		if len(evidenceJSON) > 0 {
			if err := json.Unmarshal(evidenceJSON, &is.Evidence); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal evidence")
			}
		}
		issues = append(issues, is)
	}
	return issues, eris.Wrap(rows.Err(), "postgres: list issues iterate")
}

func (s *PostgresStore) ListAuditRuns(ctx context.Context, limit int) ([]model.AuditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, schedule_type, status, total_urls, processed_urls, started_at, completed_at
		 FROM audit_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AuditRun
	for rows.Next() {
		var r model.AuditRun
		if err := rows.Scan(&r.ID, &r.ScheduleType, &r.Status, &r.TotalURLs, &r.ProcessedURLs, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// marshalNullable marshals v unless it is a typed nil pointer, so SQL NULL
// round-trips as nil rather than the JSON string "null".
func marshalNullable(v any) ([]byte, error) {
	switch x := v.(type) {
	case *model.LabMetrics:
		if x == nil {
			return nil, nil
		}
	case *model.GSCStatus:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](data []byte, dst **T) error {
	if len(data) == 0 {
		return nil
	}
	*dst = new(T)
	return json.Unmarshal(data, *dst)
}
