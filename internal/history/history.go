package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sourceplane/roleflow/internal/registry"
	"github.com/sourceplane/roleflow/internal/report"
)

// Store keeps finished runs and their per-job outcomes in a SQLite
// database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		playbook TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		wall_ms INTEGER NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		not_run INTEGER NOT NULL,
		exit_code INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_jobs (
		run_id TEXT NOT NULL,
		job_index INTEGER NOT NULL,
		label TEXT NOT NULL,
		role TEXT NOT NULL,
		host TEXT NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		log_path TEXT,
		PRIMARY KEY (run_id, job_index)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// RecordRun stores one finished run together with the outcome of every
// job it scheduled.
func (s *Store) RecordRun(ctx context.Context, sum *report.Summary, reg *registry.Registry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO runs (id, playbook, started_at, finished_at, wall_ms, total, succeeded, failed, not_run, exit_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID,
		sum.Playbook,
		sum.Started.Unix(),
		sum.Finished.Unix(),
		sum.WallTime().Milliseconds(),
		len(sum.Records),
		len(sum.Succeeded()),
		len(sum.Failed()),
		len(sum.NotRun()),
		sum.ExitCode(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", sum.RunID, err)
	}

	for _, rec := range sum.Records {
		job := reg.Entry(rec.Index).Job
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO run_jobs (run_id, job_index, label, role, host, status, exit_code, duration_ms, log_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.RunID,
			rec.Index,
			rec.Label,
			job.Role,
			job.Host,
			string(rec.Status),
			rec.ExitCode,
			rec.Duration.Milliseconds(),
			rec.LogPath,
		)
		if err != nil {
			return fmt.Errorf("failed to record job %s: %w", rec.Label, err)
		}
	}

	return tx.Commit()
}

// Run is one recorded scheduling run.
type Run struct {
	ID        string
	Playbook  string
	Started   time.Time
	Finished  time.Time
	WallTime  time.Duration
	Total     int
	Succeeded int
	Failed    int
	NotRun    int
	ExitCode  int
}

// RecentRuns returns up to limit recorded runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, playbook, started_at, finished_at, wall_ms, total, succeeded, failed, not_run, exit_code
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt, finishedAt, wallMs int64
		if err := rows.Scan(&r.ID, &r.Playbook, &startedAt, &finishedAt, &wallMs, &r.Total, &r.Succeeded, &r.Failed, &r.NotRun, &r.ExitCode); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Started = time.Unix(startedAt, 0)
		r.Finished = time.Unix(finishedAt, 0)
		r.WallTime = time.Duration(wallMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunJob is one recorded job outcome.
type RunJob struct {
	RunID    string
	Index    int
	Label    string
	Role     string
	Host     string
	Status   string
	ExitCode int
	Duration time.Duration
	LogPath  string
}

// RunJobs returns the job outcomes of one run in index order.
func (s *Store) RunJobs(ctx context.Context, runID string) ([]RunJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, job_index, label, role, host, status, exit_code, duration_ms, log_path
		 FROM run_jobs WHERE run_id = ? ORDER BY job_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run jobs: %w", err)
	}
	defer rows.Close()

	var jobs []RunJob
	for rows.Next() {
		var j RunJob
		var durationMs int64
		var logPath sql.NullString
		if err := rows.Scan(&j.RunID, &j.Index, &j.Label, &j.Role, &j.Host, &j.Status, &j.ExitCode, &durationMs, &logPath); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		j.Duration = time.Duration(durationMs) * time.Millisecond
		j.LogPath = logPath.String
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
