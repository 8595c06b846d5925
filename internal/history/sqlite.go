package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// SQLiteStore implements Store on a local SQLite file in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logging.Debug("History", "Opened history database at %s", path)
	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	var hasSchemaTbl int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&hasSchemaTbl); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if hasSchemaTbl == 0 {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("apply base schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		return nil
	}

	var currentVersion int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if currentVersion > schemaVersion {
		return fmt.Errorf("history schema v%d is newer than this tt supports (v%d)", currentVersion, schemaVersion)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration v%d begin: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d version update: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration v%d commit: %w", m.version, err)
		}
		logging.Info("History", "Migrated history schema to v%d", m.version)
		currentVersion = m.version
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

const timeFormat = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

// RecordRun stores a run and its query records in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, environment, base_url, passed, failed, errored)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.Duration.Milliseconds(), run.Environment, run.BaseURL,
		run.Passed, run.Failed, run.Errored)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, q := range run.Queries {
		failed, err := json.Marshal(nonNil(q.FailedAssertions))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO query_results (run_id, position, name, result, status_code, latency_ms, job_id, error, failed_assertions)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, q.Name, q.Result, q.StatusCode, q.LatencyMs, q.JobID, q.Error, string(failed))
		if err != nil {
			return fmt.Errorf("insert query result %s: %w", q.Name, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns runs newest first, without their query records.
func (s *SQLiteStore) ListRuns(ctx context.Context, f ListFilter) ([]*Run, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	where := "1=1"
	args := []any{}
	if f.Environment != "" {
		where += " AND environment=?"
		args = append(args, f.Environment)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, environment, base_url, passed, failed, errored
		 FROM runs WHERE `+where+` ORDER BY started_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its query records. id may be a unique prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, environment, base_url, passed, failed, errored
		 FROM runs WHERE id LIKE ? || '%' ORDER BY started_at DESC LIMIT 2`, id)
	if err != nil {
		return nil, err
	}
	var matches []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("run id %q is ambiguous", id)
	}

	run := matches[0]
	qrows, err := s.db.QueryContext(ctx,
		`SELECT name, result, status_code, latency_ms, job_id, error, failed_assertions
		 FROM query_results WHERE run_id=? ORDER BY position`, run.ID)
	if err != nil {
		return nil, err
	}
	defer qrows.Close()

	for qrows.Next() {
		var q QueryRecord
		var failed string
		if err := qrows.Scan(&q.Name, &q.Result, &q.StatusCode, &q.LatencyMs, &q.JobID, &q.Error, &failed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(failed), &q.FailedAssertions); err != nil {
			return nil, fmt.Errorf("decode failed assertions for %s: %w", q.Name, err)
		}
		if len(q.FailedAssertions) == 0 {
			q.FailedAssertions = nil
		}
		run.Queries = append(run.Queries, q)
	}
	return run, qrows.Err()
}

// Prune deletes all but the newest keep runs.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var startedAt string
	var durationMs int64
	if err := row.Scan(&r.ID, &startedAt, &durationMs, &r.Environment, &r.BaseURL, &r.Passed, &r.Failed, &r.Errored); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(startedAt)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
