// Package history provides the SQLite store for longitudinal benchmark
// results.
//
// Every run appends one row to the runs table (the machine/commit snapshot)
// and one row per case to the results table (timings stored as a JSON array
// at full float64 precision). The store backs the history and compare
// commands that track regressions across commits.
//
// The database runs embedded via the pure-Go ncruces/go-sqlite3 driver with
// WAL enabled so a dashboard can read while a run writes.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
)

// DefaultFileName is the history database file under the results directory.
const DefaultFileName = "history.db"

// timeLayout is fixed-width with zero-padded fractional seconds, always in
// UTC, so the TEXT comparison in the since filter matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   TEXT NOT NULL,
	commit_id   TEXT,
	branch      TEXT,
	version     TEXT,
	platform    TEXT,
	go_version  TEXT,
	hostname    TEXT,
	cpu_count   INTEGER,
	ram_bytes   INTEGER
);

CREATE TABLE IF NOT EXISTS results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	case_label  TEXT NOT NULL,
	function    TEXT NOT NULL,
	args        TEXT,
	skipped     INTEGER NOT NULL DEFAULT 0,
	skip_reason TEXT,
	error       TEXT,
	repeat      INTEGER,
	number      INTEGER,
	warmups     INTEGER,
	gc_enabled  INTEGER,
	timings     TEXT
);

CREATE INDEX IF NOT EXISTS idx_results_function ON results(function);
CREATE INDEX IF NOT EXISTS idx_results_label    ON results(case_label);
CREATE INDEX IF NOT EXISTS idx_runs_commit      ON runs(commit_id);
`

// Store wraps the history database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the history database at path, creating parent
// directories and the schema as needed. The caller must Close it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	s.conn = nil
	return nil
}

// StartRun inserts the run row and returns a writer that appends case
// results to it. The writer satisfies the result sink interface.
func (s *Store) StartRun(md meta.Metadata) (*RunWriter, error) {
	res, err := s.conn.Exec(`
		INSERT INTO runs (timestamp, commit_id, branch, version, platform, go_version, hostname, cpu_count, ram_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		md.Timestamp.UTC().Format(timeLayout), md.Commit, md.Branch, md.Version,
		md.Platform, md.GoVersion, md.Hostname, md.CPUCount, md.RAMBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read run id: %w", err)
	}

	return &RunWriter{store: s, runID: runID}, nil
}

// RunWriter appends result records under one run row.
type RunWriter struct {
	store *Store
	runID int64
}

// RunID returns the database id of the run being written.
func (w *RunWriter) RunID() int64 {
	return w.runID
}

// Append inserts one case result.
func (w *RunWriter) Append(rec record.ResultRecord) error {
	args, err := json.Marshal(rec.Args)
	if err != nil {
		return fmt.Errorf("failed to encode args for %s: %w", rec.Label, err)
	}

	timings, err := json.Marshal(rec.Timings)
	if err != nil {
		return fmt.Errorf("failed to encode timings for %s: %w", rec.Label, err)
	}

	_, err = w.store.conn.Exec(`
		INSERT INTO results (run_id, case_label, function, args, skipped, skip_reason, error, repeat, number, warmups, gc_enabled, timings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.runID, rec.Label, rec.Function, string(args),
		boolInt(rec.Skipped), rec.SkipReason, rec.Error,
		rec.Config.Repeat, rec.Config.Number, rec.Config.Warmups,
		boolInt(rec.Config.GarbageCollection), string(timings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result for %s: %w", rec.Label, err)
	}
	return nil
}

// Close is a no-op: the writer borrows the store's connection.
func (w *RunWriter) Close() error {
	return nil
}

// Entry is one historical case result joined with its run snapshot.
type Entry struct {
	RunID     int64
	Timestamp time.Time
	Commit    string
	Branch    string
	Label     string
	Function  string
	Skipped   bool
	Error     string
	Timings   []float64
}

// Filter narrows a history query. Zero values mean "no constraint".
type Filter struct {
	Function string
	Commit   string
	Since    time.Time
	Limit    int
}

// Query returns historical entries newest-run-first, cases in insertion
// order within a run.
func (s *Store) Query(f Filter) ([]Entry, error) {
	q := `
		SELECT r.run_id, runs.timestamp, runs.commit_id, runs.branch,
		       r.case_label, r.function, r.skipped, r.error, r.timings
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE 1=1`
	var args []any

	if f.Function != "" {
		q += " AND r.function = ?"
		args = append(args, f.Function)
	}
	if f.Commit != "" {
		q += " AND runs.commit_id = ?"
		args = append(args, f.Commit)
	}
	if !f.Since.IsZero() {
		q += " AND runs.timestamp >= ?"
		args = append(args, f.Since.UTC().Format(timeLayout))
	}

	q += " ORDER BY r.run_id DESC, r.id ASC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			ts      string
			skipped int
			timings string
		)
		if err := rows.Scan(&e.RunID, &ts, &e.Commit, &e.Branch, &e.Label, &e.Function, &skipped, &e.Error, &timings); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		if e.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("invalid run timestamp %q: %w", ts, err)
		}
		if err := json.Unmarshal([]byte(timings), &e.Timings); err != nil {
			return nil, fmt.Errorf("invalid timings for %s: %w", e.Label, err)
		}
		e.Skipped = skipped != 0

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
