// Package store persists project records and a turn journal in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"craftfolio/internal/logging"
	"craftfolio/internal/state"
)

// ErrNotFound is returned when a project id has no stored record.
var ErrNotFound = errors.New("store: project not found")

// TurnRecord is one journaled conversational turn.
type TurnRecord struct {
	ID          int64     `json:"id"`
	ProjectID   string    `json:"project_id"`
	UserMessage string    `json:"user_message"`
	Subagents   []string  `json:"subagents"`
	Checkpoint  string    `json:"checkpoint"`
	CreatedAt   time.Time `json:"created_at"`
}

// SQLiteStore keeps project state as JSON rows plus an append-only turn
// journal. A single writer connection with WAL keeps concurrent reads cheap
// without a heavyweight pool.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path, creating parent
// directories and the schema as needed.
func Open(path string) (*SQLiteStore, error) {
	logging.Store("opening project store at %s", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("set synchronous=NORMAL: %v", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    state      TEXT NOT NULL,
    checkpoint TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id   TEXT NOT NULL,
    user_message TEXT NOT NULL,
    subagents    TEXT NOT NULL DEFAULT '[]',
    checkpoint   TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_project ON turns(project_id, id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// SaveState upserts a project record.
func (s *SQLiteStore) SaveState(ctx context.Context, ps *state.ProjectState) error {
	if ps == nil || ps.ProjectID == "" {
		return errors.New("store: cannot save state without a project id")
	}
	blob, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO projects (id, state, checkpoint, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET state = excluded.state,
                              checkpoint = excluded.checkpoint,
                              updated_at = excluded.updated_at`,
		ps.ProjectID, string(blob), ps.Checkpoint, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save project %s: %w", ps.ProjectID, err)
	}
	logging.StoreDebug("saved project %s at checkpoint %s", ps.ProjectID, ps.Checkpoint)
	return nil
}

// LoadState fetches a project record. Returns ErrNotFound for unknown ids.
func (s *SQLiteStore) LoadState(ctx context.Context, projectID string) (*state.ProjectState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM projects WHERE id = ?`, projectID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}

	var ps state.ProjectState
	if err := json.Unmarshal([]byte(blob), &ps); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", projectID, err)
	}
	// Records written before the confidence key was always emitted have no
	// map in the blob; restore the invariant here so they stay dispatchable.
	if ps.Confidence == nil {
		ps.Confidence = make(state.ConfidenceMap)
	}
	return &ps, nil
}

// ListProjects returns the stored project ids, most recently updated first.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendTurn journals one completed turn.
func (s *SQLiteStore) AppendTurn(ctx context.Context, rec TurnRecord) error {
	subs, err := json.Marshal(rec.Subagents)
	if err != nil {
		return fmt.Errorf("marshal turn subagents: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO turns (project_id, user_message, subagents, checkpoint, created_at)
VALUES (?, ?, ?, ?, ?)`,
		rec.ProjectID, rec.UserMessage, string(subs), rec.Checkpoint,
		rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("journal turn for %s: %w", rec.ProjectID, err)
	}
	return nil
}

// Turns returns the journal for a project in chronological order, capped at
// limit (0 means no cap).
func (s *SQLiteStore) Turns(ctx context.Context, projectID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, project_id, user_message, subagents, checkpoint, created_at
FROM turns WHERE project_id = ? ORDER BY id`
	args := []any{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load turns for %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var subs, created string
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.UserMessage, &subs, &rec.Checkpoint, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(subs), &rec.Subagents); err != nil {
			rec.Subagents = nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and its journal.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete turns for %s: %w", projectID, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project %s: %w", projectID, err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
