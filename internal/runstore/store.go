// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore persists resolution runs in SQLite: one row per run,
// per result and per collected issue. Curators query it for unresolved
// records and per-run summaries, and export runs as YAML.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ontomap/internal/issues"
	"github.com/pdiddy/ontomap/pkg/types"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run describes one resolution run.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"`
	Input      string    `json:"input" yaml:"input"`
	Status     string    `json:"status" yaml:"status"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Store manages the run database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, now: time.Now}
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
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			input TEXT,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			source TEXT,
			source_file TEXT,
			line INTEGER,
			external_code TEXT,
			keyword TEXT,
			gene_symbol TEXT,
			gene_id INTEGER,
			evidence_code TEXT,
			mapping_type TEXT NOT NULL,
			uris TEXT,
			trail TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_type ON results(run_id, mapping_type)`,
		`CREATE TABLE IF NOT EXISTS issues (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			source TEXT,
			line INTEGER,
			key TEXT,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}

// BeginRun records a new run in the running state and returns it.
func (s *Store) BeginRun(ctx context.Context, source, input string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Source:    source,
		Input:     input,
		Status:    StatusRunning,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, input, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Input, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// FinishRun sets the run's final status and finish time.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, formatTime(s.now()), runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// SaveResult stores one result.
func (s *Store) SaveResult(ctx context.Context, runID string, res types.ResolutionResult) error {
	return s.SaveResults(ctx, runID, []types.ResolutionResult{res})
}

// SaveResults stores results in one transaction.
func (s *Store) SaveResults(ctx context.Context, runID string, results []types.ResolutionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, source, source_file, line, external_code, keyword,
			gene_symbol, gene_id, evidence_code, mapping_type, uris, trail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		rec := res.Record
		urisJSON, _ := json.Marshal(res.MatchedURIs)
		_, err := stmt.ExecContext(ctx,
			runID, rec.SourceDatabase, rec.SourceFile, rec.Line, rec.ExternalCode, rec.FreeTextKeyword,
			rec.GeneSymbol, rec.SubjectGeneID, rec.EvidenceCode, string(res.MappingType),
			string(urisJSON), res.OriginalPhraseTrail,
		)
		if err != nil {
			return fmt.Errorf("inserting result %s: %w", rec.Key(), err)
		}
	}
	return tx.Commit()
}

// SaveIssues stores collected issues in one transaction.
func (s *Store) SaveIssues(ctx context.Context, runID string, list []issues.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO issues (run_id, kind, source, line, key, message) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, is := range list {
		if _, err := stmt.ExecContext(ctx, runID, string(is.Kind), is.Source, is.Line, is.Key, is.Message); err != nil {
			return fmt.Errorf("inserting issue: %w", err)
		}
	}
	return tx.Commit()
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, input, status, started_at, finished_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, input, status, started_at, finished_at FROM runs
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// Runs lists runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, input, status, started_at, finished_at FROM runs
		 ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run              Run
		input            sql.NullString
		started, finished sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Source, &input, &run.Status, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	run.Input = input.String
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}
