// Package store keeps a sqlite journal of batch runs for operator
// visibility. The journal is bookkeeping only; resumption state lives in the
// output workbook itself.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// RunStatus is the lifecycle state of a journaled run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one journal entry.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Processed  int
	Succeeded  int
	Failed     int
	LastFile   string
	Error      string
}

// Journal records run history in a local sqlite database.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the journal at path and applies migrations.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "journal: create dir for %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "journal: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "journal: exec %s", pragma)
		}
	}

	j := &Journal{db: db}
	if err := j.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	status      TEXT NOT NULL DEFAULT 'running',
	processed   INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	last_file   TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (j *Journal) migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "journal: migrate")
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun inserts a new running entry and returns it.
func (j *Journal) StartRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)`,
		run.ID, run.StartedAt, string(run.Status),
	)
	if err != nil {
		return nil, eris.Wrap(err, "journal: insert run")
	}
	return run, nil
}

// FinishRun records the final state and counters for a run.
func (j *Journal) FinishRun(ctx context.Context, run *Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now

	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, processed = ?, succeeded = ?,
		 failed = ?, last_file = ?, error = ? WHERE id = ?`,
		now, string(run.Status), run.Processed, run.Succeeded,
		run.Failed, run.LastFile, run.Error, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "journal: update run %s", run.ID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "journal: rows affected")
	}
	if n == 0 {
		return eris.Errorf("journal: run %s not found", run.ID)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, processed, succeeded, failed, last_file, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "journal: query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var status string
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &status,
			&r.Processed, &r.Succeeded, &r.Failed, &r.LastFile, &r.Error); err != nil {
			return nil, eris.Wrap(err, "journal: scan run")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		r.Status = RunStatus(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "journal: iterate runs")
}
