// Package history keeps a local journal of build runs in SQLite, so the CLI
// can answer "what did recent builds do" without re-reading build state.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Build is one recorded build run.
type Build struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           string
	FilesScanned     int
	FilesChanged     int
	FilesRegenerated int
	Duration         time.Duration
}

// Store is a SQLite-backed build journal.
type Store struct {
	db *sql.DB
}

// NewStore opens (and initializes) the journal at dbPath.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		status TEXT NOT NULL DEFAULT 'running',
		files_scanned INTEGER NOT NULL DEFAULT 0,
		files_changed INTEGER NOT NULL DEFAULT 0,
		files_regenerated INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordStart inserts a new running build.
func (s *Store) RecordStart(ctx context.Context, id string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (id, started_at) VALUES (?, ?)",
		id, startedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// RecordFinish completes a previously started build.
func (s *Store) RecordFinish(ctx context.Context, id, status string, scanned, changed, regenerated int, d time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE builds SET finished_at = ?, status = ?, files_scanned = ?,
		 files_changed = ?, files_regenerated = ?, duration_ms = ? WHERE id = ?`,
		time.Now().UnixMilli(), status, scanned, changed, regenerated, d.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("update build: %w", err)
	}
	return nil
}

// Recent returns the most recent builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, files_scanned,
		 files_changed, files_regenerated, duration_ms
		 FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var startedMS int64
		var finishedMS sql.NullInt64
		var durationMS int64
		if err := rows.Scan(&b.ID, &startedMS, &finishedMS, &b.Status,
			&b.FilesScanned, &b.FilesChanged, &b.FilesRegenerated, &durationMS); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.StartedAt = time.UnixMilli(startedMS)
		if finishedMS.Valid {
			b.FinishedAt = time.UnixMilli(finishedMS.Int64)
		}
		b.Duration = time.Duration(durationMS) * time.Millisecond
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
