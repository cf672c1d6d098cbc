package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/factlens/factlens/internal/pipeline"
)

// RunDB provides SQLite-based storage for pipeline run history.
//
// Design decision: We use a single database file for all runs rather
// than one per store because history queries span stores and the volume
// is tiny (one row per run).
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in the specified directory.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "factlens.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per finished pipeline run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		final_state TEXT NOT NULL,
		failed_stage TEXT,
		error TEXT,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Per-stage outcomes within a run
	CREATE TABLE IF NOT EXISTS stage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON stage_events(run_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored pipeline run.
type RunRecord struct {
	ID          int64
	Subject     string
	StartedAt   time.Time
	FinishedAt  time.Time
	FinalState  string
	FailedStage string
	Error       string
	Summary     string
	Stages      []StageEvent
}

// StageEvent is one stage's outcome within a run.
type StageEvent struct {
	Stage    string
	Status   string
	Duration time.Duration
	Error    string
}

// InsertRun stores a finished run and its stage events in one
// transaction, returning the new run's ID.
func (rdb *RunDB) InsertRun(ctx context.Context, record *RunRecord) (int64, error) {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (subject, started_at, finished_at, final_state, failed_stage, error, summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Subject,
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
		record.FinalState,
		record.FailedStage,
		record.Error,
		record.Summary,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, event := range record.Stages {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO stage_events (run_id, stage, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?)`,
			runID,
			event.Stage,
			event.Status,
			event.Duration.Milliseconds(),
			event.Error,
		); err != nil {
			return 0, fmt.Errorf("failed to insert stage event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first, with their
// stage events attached.
func (rdb *RunDB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id, subject, started_at, finished_at, final_state, failed_stage, error, summary
	FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Subject, &r.StartedAt, &r.FinishedAt,
			&r.FinalState, &r.FailedStage, &r.Error, &r.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	for i := range records {
		events, err := rdb.stageEvents(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Stages = events
	}
	return records, nil
}

// stageEvents loads the stage events for one run.
func (rdb *RunDB) stageEvents(ctx context.Context, runID int64) ([]StageEvent, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT stage, status, duration_ms, error
	FROM stage_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage events: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var e StageEvent
		var durationMS int64
		if err := rows.Scan(&e.Stage, &e.Status, &durationMS, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan stage event: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stage events: %w", err)
	}
	return events, nil
}

// NewRunRecord builds a RunRecord from a finished pipeline run.
func NewRunRecord(run *pipeline.PipelineRun, errText, summary string, events []StageEvent) *RunRecord {
	return &RunRecord{
		Subject:     run.Subject,
		StartedAt:   run.StartedAt,
		FinishedAt:  time.Now(),
		FinalState:  run.State.String(),
		FailedStage: run.FailedStage,
		Error:       errText,
		Summary:     summary,
		Stages:      events,
	}
}
