// Package journal persists diagnostics events to SQLite so runs can be
// inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/logger"
	_ "modernc.org/sqlite"
)

var ErrEmptyPath = errors.New("empty journal path")

// Journal is a diagnostics sink backed by a SQLite database. Writes are
// synchronous; wrap it in diagnostics.AsyncSink to keep them off the
// scheduling thread.
type Journal struct {
	db *sql.DB

	mu         sync.Mutex
	insertRun  *sql.Stmt
	insertStep *sql.Stmt
	closed     bool
}

// Step is one persisted event.
type Step struct {
	RunID     string
	Position  int
	Statement int
	Label     string
	Elapsed   time.Duration
	At        time.Time
	View      map[string]any
	ViewHash  uint64
	Successor string
	Completed bool
}

// Run is one persisted execution.
type Run struct {
	RunID       string
	Machine     string
	State       string
	Fingerprint uint64
	StartedAt   time.Time
	Steps       int
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
			return nil, fmt.Errorf("creating journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	j := &Journal{db: db}

	j.insertRun, err = db.PrepareContext(ctx,
		`INSERT OR IGNORE INTO runs(run_id, machine, state, fingerprint, started_at) VALUES(?,?,?,?,?)`)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("preparing run insert: %w", err)
	}

	j.insertStep, err = db.PrepareContext(ctx,
		`INSERT OR REPLACE INTO steps(run_id, position, statement, label, elapsed_ns, at, view_json, view_hash, successor, completed)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = j.insertRun.Close()
		_ = db.Close()

		return nil, fmt.Errorf("preparing step insert: %w", err)
	}

	return j, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			machine TEXT NOT NULL,
			state TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			started_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			position INTEGER NOT NULL,
			statement INTEGER NOT NULL,
			label TEXT NOT NULL,
			elapsed_ns INTEGER NOT NULL,
			at INTEGER NOT NULL,
			view_json TEXT NOT NULL,
			view_hash TEXT NOT NULL,
			successor TEXT NOT NULL,
			completed INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS steps_by_statement ON steps(run_id, statement);`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("creating journal schema: %w", err)
		}
	}

	return nil
}

// Record implements diagnostics.Sink. Failures are logged.
func (j *Journal) Record(ctx context.Context, ev diagnostics.Event) {
	if err := j.Write(ctx, ev); err != nil {
		logger.Get(ctx).Error("journal write failed", "error", err, "run_id", ev.RunID, "position", ev.Position)
	}
}

// Write persists ev.
func (j *Journal) Write(ctx context.Context, ev diagnostics.Event) error {
	view, err := json.Marshal(ev.View.Values())
	if err != nil {
		return fmt.Errorf("encoding view: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	started := ev.At.Add(-ev.Elapsed)

	if _, err := j.insertRun.ExecContext(ctx,
		ev.RunID, ev.Machine, ev.State, hexHash(ev.Fingerprint), started.UnixNano()); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if _, err := j.insertStep.ExecContext(ctx,
		ev.RunID, ev.Position, ev.Statement, ev.Label, int64(ev.Elapsed), ev.At.UnixNano(),
		string(view), hexHash(xxhash.Checksum64(view)), ev.Successor, ev.Completed); err != nil {
		return fmt.Errorf("inserting step: %w", err)
	}

	return nil
}

// Runs lists persisted runs in start order.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.run_id, r.machine, r.state, r.fingerprint, r.started_at, COUNT(s.position)
		FROM runs r LEFT JOIN steps s ON s.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at, r.rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run

	for rows.Next() {
		var (
			run     Run
			fp      string
			started int64
		)

		if err := rows.Scan(&run.RunID, &run.Machine, &run.State, &fp, &started, &run.Steps); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		if _, err := fmt.Sscanf(fp, "%x", &run.Fingerprint); err != nil {
			return nil, fmt.Errorf("parsing fingerprint %q: %w", fp, err)
		}

		run.StartedAt = time.Unix(0, started).UTC()
		out = append(out, run)
	}

	return out, rows.Err()
}

// Steps returns the persisted steps of runID in position order.
func (j *Journal) Steps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT position, statement, label, elapsed_ns, at, view_json, view_hash, successor, completed
		FROM steps WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	var out []Step

	for rows.Next() {
		var (
			step    = Step{RunID: runID}
			elapsed int64
			at      int64
			view    string
			hash    string
		)

		if err := rows.Scan(&step.Position, &step.Statement, &step.Label, &elapsed, &at,
			&view, &hash, &step.Successor, &step.Completed); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}

		if _, err := fmt.Sscanf(hash, "%x", &step.ViewHash); err != nil {
			return nil, fmt.Errorf("parsing view hash %q: %w", hash, err)
		}

		if err := json.Unmarshal([]byte(view), &step.View); err != nil {
			return nil, fmt.Errorf("decoding view: %w", err)
		}

		step.Elapsed = time.Duration(elapsed)
		step.At = time.Unix(0, at).UTC()
		out = append(out, step)
	}

	return out, rows.Err()
}

// ViewChanges returns the positions of runID whose world view differs from
// the step before it. The first step always counts as a change.
func (j *Journal) ViewChanges(ctx context.Context, runID string) ([]int, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT position FROM (
			SELECT position, view_hash, LAG(view_hash) OVER (ORDER BY position) AS prev
			FROM steps WHERE run_id = ?
		) WHERE prev IS NULL OR prev <> view_hash
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying view changes: %w", err)
	}
	defer rows.Close()

	var out []int

	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, fmt.Errorf("scanning view change: %w", err)
		}

		out = append(out, pos)
	}

	return out, rows.Err()
}

func hexHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// Close closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	j.closed = true

	return errors.Join(j.insertRun.Close(), j.insertStep.Close(), j.db.Close())
}
