package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"parsewright/internal/logging"
)

// Run verdicts as persisted in the runs table.
const (
	VerdictRunning   = "running"
	VerdictSucceeded = "succeeded"
	VerdictExhausted = "exhausted"
	VerdictAborted   = "aborted"
)

// RunRecord is one row of the runs table: a single generate/repair session
// for a target, from the first generation request to the final verdict.
type RunRecord struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Verdict     string    `json:"verdict"`
	Attempts    int       `json:"attempts"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	ParserPath  string    `json:"parser_path,omitempty"`
	FinalReport string    `json:"final_report,omitempty"`
}

// AttemptRecord is one validation attempt inside a run. Report holds the
// comparison report serialized as JSON so past failures stay inspectable.
type AttemptRecord struct {
	RunID     string        `json:"run_id"`
	Attempt   int           `json:"attempt"`
	Kind      string        `json:"kind"`
	Summary   string        `json:"summary,omitempty"`
	Report    string        `json:"report,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// RunStore persists run and attempt history in SQLite.
//
// Two tables:
// - runs: one row per session, updated with the verdict when it ends
// - run_attempts: one row per validation attempt, keyed (run_id, attempt)
//
// Thread-safe with a read-write mutex. The database handle is capped at a
// single connection because SQLite serializes writers anyway.
type RunStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewRunStore opens (or creates) the SQLite database at the given path.
func NewRunStore(path string) (*RunStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewRunStore")
	defer timer.Stop()

	logging.Store("Initializing RunStore at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.StoreError("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &RunStore{db: db, dbPath: path}
	if err := s.ensureSchema(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.StoreDebug("RunStore schema ready")
	return s, nil
}

func (s *RunStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		verdict TEXT NOT NULL DEFAULT 'running',
		attempts INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		parser_path TEXT,
		final_report TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_attempts (
		run_id TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		kind TEXT NOT NULL,
		summary TEXT,
		report TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, attempt)
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_run ON run_attempts(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun inserts a new run row with the 'running' verdict.
func (s *RunStore) BeginRun(id, target, provider, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Beginning run: id=%s target=%s provider=%s model=%s", id, target, provider, model)

	_, err := s.db.Exec(`
		INSERT INTO runs (id, target, provider, model, verdict, attempts, started_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		id, target, provider, model, VerdictRunning, time.Now().UnixMilli(),
	)
	if err != nil {
		logging.StoreError("Failed to begin run %s: %v", id, err)
		return fmt.Errorf("failed to begin run: %w", err)
	}
	return nil
}

// RecordAttempt persists one validation attempt. Re-recording the same
// (run, attempt) pair replaces the earlier row.
func (s *RunStore) RecordAttempt(runID string, attempt int, kind, summary, report string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Recording attempt: run=%s attempt=%d kind=%s", runID, attempt, kind)

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO run_attempts (run_id, attempt, kind, summary, report, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, attempt, kind, summary, report, duration.Milliseconds(), time.Now().UnixMilli(),
	)
	if err != nil {
		logging.StoreError("Failed to record attempt %d for run %s: %v", attempt, runID, err)
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// FinishRun seals a run with its verdict, attempt count, and final report.
func (s *RunStore) FinishRun(id, verdict string, attempts int, parserPath, finalReport string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.Store("Finishing run: id=%s verdict=%s attempts=%d", id, verdict, attempts)

	res, err := s.db.Exec(`
		UPDATE runs
		SET verdict = ?, attempts = ?, finished_at = ?, parser_path = ?, final_report = ?
		WHERE id = ?`,
		verdict, attempts, time.Now().UnixMilli(), parserPath, finalReport, id,
	)
	if err != nil {
		logging.StoreError("Failed to finish run %s: %v", id, err)
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unknown run: %s", id)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *RunStore) RecentRuns(limit int) ([]RunRecord, error) {
	timer := logging.StartTimer(logging.CategoryStore, "RecentRuns")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, target, provider, model, verdict, attempts, started_at, finished_at, parser_path, final_report
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		logging.StoreError("Failed to query recent runs: %v", err)
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			startedMs  int64
			finishedMs sql.NullInt64
			parserPath sql.NullString
			report     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Target, &r.Provider, &r.Model, &r.Verdict, &r.Attempts,
			&startedMs, &finishedMs, &parserPath, &report); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(startedMs)
		if finishedMs.Valid {
			r.FinishedAt = time.UnixMilli(finishedMs.Int64)
		}
		r.ParserPath = parserPath.String
		r.FinalReport = report.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logging.StoreDebug("Retrieved %d recent runs", len(records))
	return records, nil
}

// Attempts returns the validation attempts of a run in attempt order.
func (s *RunStore) Attempts(runID string) ([]AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT run_id, attempt, kind, summary, report, duration_ms, created_at
		FROM run_attempts
		WHERE run_id = ?
		ORDER BY attempt ASC`, runID)
	if err != nil {
		logging.StoreError("Failed to query attempts for run %s: %v", runID, err)
		return nil, err
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var (
			a          AttemptRecord
			summary    sql.NullString
			report     sql.NullString
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&a.RunID, &a.Attempt, &a.Kind, &summary, &report, &durationMs, &createdMs); err != nil {
			return nil, err
		}
		a.Summary = summary.String
		a.Report = report.String
		a.Duration = time.Duration(durationMs) * time.Millisecond
		a.CreatedAt = time.UnixMilli(createdMs)
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the underlying database handle.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Closing RunStore at %s", s.dbPath)
	return s.db.Close()
}
