// Package history keeps an SQLite audit log of dedup runs and the entries each run removed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/snapetech/playlist-dedup/internal/dedup"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id       TEXT PRIMARY KEY,
		started_at   TEXT NOT NULL,
		input        TEXT NOT NULL,
		output       TEXT NOT NULL,
		dry_run      INTEGER NOT NULL,
		records      INTEGER NOT NULL,
		groups_found INTEGER NOT NULL,
		removed      INTEGER NOT NULL,
		kept         INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS removals (
		run_id   TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		key      TEXT NOT NULL,
		name     TEXT NOT NULL,
		tier     TEXT NOT NULL,
		tvg_id   TEXT NOT NULL,
		url      TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS removals_key ON removals(key)`,
}

// timeLayout is fixed width so started_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one row of the runs table.
type Run struct {
	ID        string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Input     string        `json:"input" yaml:"input"`
	Output    string        `json:"output" yaml:"output"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
	Summary   dedup.Summary `json:"summary" yaml:"summary"`
}

// Removal is one removed entry of a run.
type Removal struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Position int    `json:"position" yaml:"position"` // index in the playlist as loaded
	Key      string `json:"key" yaml:"key"`
	Name     string `json:"name" yaml:"name"`
	Tier     string `json:"tier" yaml:"tier"`
	TvgID    string `json:"tvg_id,omitempty" yaml:"tvg_id,omitempty"`
	URL      string `json:"url" yaml:"url"`
}

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init history schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores run and its removals in one transaction. An empty run.ID is replaced by
// a fresh UUID; the ID used is returned.
func (s *Store) Record(ctx context.Context, run Run, removals []Removal) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, started_at, input, output, dry_run, records, groups_found, removed, kept)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Input, run.Output, run.DryRun,
		run.Summary.Records, run.Summary.Groups, run.Summary.Removed, run.Summary.Kept,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO removals
		(run_id, position, key, name, tier, tvg_id, url) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare removal insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range removals {
		if _, err := stmt.ExecContext(ctx, run.ID, r.Position, r.Key, r.Name, r.Tier, r.TvgID, r.URL); err != nil {
			return "", fmt.Errorf("insert removal %d: %w", r.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit history tx: %w", err)
	}
	return run.ID, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT run_id, started_at, input, output, dry_run, records, groups_found, removed, kept
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &started, &r.Input, &r.Output, &r.DryRun,
			&r.Summary.Records, &r.Summary.Groups, &r.Summary.Removed, &r.Summary.Kept); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Removals returns the entries removed by runID in playlist order.
func (s *Store) Removals(ctx context.Context, runID string) ([]Removal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, position, key, name, tier, tvg_id, url
		FROM removals WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query removals: %w", err)
	}
	defer rows.Close()

	var out []Removal
	for rows.Next() {
		var r Removal
		if err := rows.Scan(&r.RunID, &r.Position, &r.Key, &r.Name, &r.Tier, &r.TvgID, &r.URL); err != nil {
			return nil, fmt.Errorf("scan removal: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
