// journal.go records provisioning runs into an on-disk SQLite database so
// later invocations (and 'stackup doctor') can report what happened last.
// Journal failures never abort a run; callers log and continue.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	createRunsStmt = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    status TEXT NOT NULL DEFAULT 'running'
);`
	createStepsStmt = `
CREATE TABLE IF NOT EXISTS steps (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id),
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    error TEXT
);`
	createStepIndexStmt = `CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);`
)

// StepRecord is one persisted pipeline step outcome.
type StepRecord struct {
	Name     string        `yaml:"name"`
	Status   string        `yaml:"status"`
	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// RunSummary describes one recorded run.
type RunSummary struct {
	ID         int64        `yaml:"id"`
	StartedAt  time.Time    `yaml:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at,omitempty"`
	Status     string       `yaml:"status"`
	Steps      []StepRecord `yaml:"steps,omitempty"`
}

// Journal wraps the SQLite run log.
type Journal struct {
	db *sql.DB
}

// Open initializes the journal at path, creating parent directories and the
// schema as needed.
func Open(path string) (*Journal, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	dir := filepath.Dir(p)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, stmt := range []string{createRunsStmt, createStepsStmt, createStepIndexStmt} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return &Journal{db: db}, nil
}

// Begin records the start of a run and returns its id.
func (j *Journal) Begin(ctx context.Context) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO runs(started_at) VALUES(?)`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("record run start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	return id, nil
}

// RecordStep appends one step outcome to a run.
func (j *Journal) RecordStep(ctx context.Context, runID int64, rec StepRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO steps(run_id, name, status, duration_ms, error) VALUES(?, ?, ?, ?, ?)`,
		runID, rec.Name, rec.Status, rec.Duration.Milliseconds(), rec.Error)
	if err != nil {
		return fmt.Errorf("record step %s: %w", rec.Name, err)
	}
	return nil
}

// Finish marks a run as succeeded or failed.
func (j *Journal) Finish(ctx context.Context, runID int64, status string) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), status, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// LastRun returns the most recent run with its steps, or nil when the
// journal is empty.
func (j *Journal) LastRun(ctx context.Context) (*RunSummary, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), status FROM runs ORDER BY id DESC LIMIT 1`)
	var (
		summary  RunSummary
		started  string
		finished string
	)
	if err := row.Scan(&summary.ID, &started, &finished, &summary.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read last run: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, started); err == nil {
		summary.StartedAt = ts
	}
	if finished != "" {
		if ts, err := time.Parse(time.RFC3339, finished); err == nil {
			summary.FinishedAt = ts
		}
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT name, status, duration_ms, COALESCE(error, '') FROM steps WHERE run_id = ? ORDER BY id`,
		summary.ID)
	if err != nil {
		return nil, fmt.Errorf("read run steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rec StepRecord
			ms  int64
		)
		if err := rows.Scan(&rec.Name, &rec.Status, &ms, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		summary.Steps = append(summary.Steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return &summary, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
