// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records fetch runs in a SQLite database so past runs and
// their per-target outcomes can be listed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/gpreg/pkg/types"
)

const defaultLimit = 20

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at cfg.DBPath, creating its
// parent directory and schema if needed.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("history database path is not set")
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			period TEXT NOT NULL,
			page_url TEXT NOT NULL,
			output_dir TEXT,
			page_error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_targets (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			archive_url TEXT,
			data_file TEXT,
			output_path TEXT,
			rows INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_targets_target ON run_targets(target)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its target results in one transaction and
// returns the new run ID.
func (s *Store) Record(ctx context.Context, run types.RunRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, period, page_url, output_dir, page_error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Period, run.PageURL, run.OutputDir, run.PageError,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for i, r := range run.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_targets (run_id, position, target, status, archive_url, data_file, output_path, rows, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, string(r.Target), string(r.Status), r.ArchiveURL, r.DataFile, r.OutputPath, r.Rows, r.Error,
		); err != nil {
			return 0, fmt.Errorf("inserting result for %s: %w", r.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first, with their target results.
// A non-positive limit uses the default of 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, period, page_url, output_dir, page_error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			run                types.RunRecord
			started, finished  string
			outputDir, pageErr sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Period, &run.PageURL, &outputDir, &pageErr); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("scanning run %d: started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("scanning run %d: finished_at: %w", run.ID, err)
		}
		run.OutputDir = outputDir.String
		run.PageError = pageErr.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		results, err := s.results(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

func (s *Store) results(ctx context.Context, runID int64) ([]types.TargetResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target, status, archive_url, data_file, output_path, rows, error
		 FROM run_targets WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results for run %d: %w", runID, err)
	}
	defer rows.Close()

	var results []types.TargetResult
	for rows.Next() {
		var (
			r                                   types.TargetResult
			target, status                      string
			archiveURL, dataFile, outPath, errS sql.NullString
			n                                   sql.NullInt64
		)
		if err := rows.Scan(&target, &status, &archiveURL, &dataFile, &outPath, &n, &errS); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Target = types.Target(target)
		r.Status = types.TargetStatus(status)
		r.ArchiveURL = archiveURL.String
		r.DataFile = dataFile.String
		r.OutputPath = outPath.String
		r.Rows = int(n.Int64)
		r.Error = errS.String
		results = append(results, r)
	}
	return results, rows.Err()
}
