// Package history persists run outcomes to a local sqlite database so
// past runs can be inspected after their run directories are cleaned.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/labforge/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	selectors   TEXT NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	aborted     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS instances (
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	instance    TEXT NOT NULL,
	state       TEXT NOT NULL,
	exit_code   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, instance)
);
`

// Store is a sqlite-backed run-history store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run and its per-instance results.
func (s *Store) Record(report *session.RunReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, started_at, selectors, total, passed, failed, aborted, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Timestamp, strings.Join(report.Selectors, " "),
		report.Total, report.Passed, report.Failed, report.Aborted,
		report.TotalDuration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// stable insert order for reproducible listings
	ids := make([]string, 0, len(report.Results))
	for id := range report.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := report.Results[id]
		_, err = tx.Exec(
			`INSERT INTO instances (run_id, instance, state, exit_code, duration_ms, error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			report.RunID, r.Instance, r.State.String(), r.ExitCode,
			r.Duration.Milliseconds(), r.Error,
		)
		if err != nil {
			return fmt.Errorf("insert instance %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	Selectors string
	Total     int
	Passed    int
	Failed    int
	Aborted   int
	Duration  time.Duration
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT run_id, started_at, selectors, total, passed, failed, aborted, duration_ms
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var ms int64
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.Selectors, &r.Total, &r.Passed, &r.Failed, &r.Aborted, &ms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// InstanceRecord is one stored per-instance result.
type InstanceRecord struct {
	Instance string
	State    string
	ExitCode int
	Duration time.Duration
	Error    string
}

// Instances returns the stored results for a run, instance order.
func (s *Store) Instances(runID string) ([]InstanceRecord, error) {
	rows, err := s.db.Query(
		`SELECT instance, state, exit_code, duration_ms, error
		 FROM instances WHERE run_id = ? ORDER BY instance`, runID)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []InstanceRecord
	for rows.Next() {
		var r InstanceRecord
		var ms int64
		if err := rows.Scan(&r.Instance, &r.State, &r.ExitCode, &ms, &r.Error); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
