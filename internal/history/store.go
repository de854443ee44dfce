// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists run summaries in a local SQLite database so
// repeated fixes of the same page can be compared over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/notion-eqfix/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run history SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the per-user history database location,
// ~/.local/share/notion-eqfix/runs.db, honoring XDG_DATA_HOME.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return dbFile
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "notion-eqfix", dbFile)
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
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
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			converted INTEGER NOT NULL,
			unmatched INTEGER NOT NULL,
			cycles INTEGER NOT NULL,
			skipped TEXT,
			started_at TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save records one finished run.
func (s *Store) Save(ctx context.Context, summary types.RunSummary) error {
	skippedJSON, err := json.Marshal(summary.Skipped)
	if err != nil {
		return fmt.Errorf("encoding skipped spans: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (url, status, converted, unmatched, cycles, skipped, started_at, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.URL, string(summary.Status), summary.Converted,
		summary.Unmatched, summary.Cycles, string(skippedJSON),
		summary.StartedAt.UTC().Format(time.RFC3339Nano),
		summary.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Recent returns up to limit summaries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url, status, converted, unmatched, cycles, skipped, started_at, elapsed_ms
		 FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunSummary
	for rows.Next() {
		var (
			summary   types.RunSummary
			status    string
			skipped   sql.NullString
			startedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&summary.URL, &status, &summary.Converted,
			&summary.Unmatched, &summary.Cycles, &skipped, &startedAt, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		summary.Status = types.RunStatus(status)
		summary.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			summary.StartedAt = t
		}
		if skipped.Valid && skipped.String != "" && skipped.String != "null" {
			if err := json.Unmarshal([]byte(skipped.String), &summary.Skipped); err != nil {
				return nil, fmt.Errorf("decoding skipped spans: %w", err)
			}
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
