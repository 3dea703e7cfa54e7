// Package sqlite implements the Persistence Bridge on an embedded SQLite
// database, one row per (session, variable).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/livemd/pkg/domain"
)

const (
	createTableStmt = `
CREATE TABLE IF NOT EXISTS variables (
    session_id TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (session_id, name)
);`
	upsertStmt = `
INSERT INTO variables(session_id, name, kind, value, updated_at) VALUES(?, ?, ?, ?, ?)
ON CONFLICT(session_id, name) DO UPDATE SET
    kind = excluded.kind,
    value = excluded.value,
    updated_at = excluded.updated_at`
	deleteStmt = `DELETE FROM variables WHERE session_id = ? AND name = ?`
	loadStmt   = `SELECT name, value FROM variables WHERE session_id = ?`
	dropStmt   = `DELETE FROM variables WHERE session_id = ?`
	listStmt   = `SELECT DISTINCT session_id FROM variables ORDER BY session_id`
)

// Store implements ports.VariableStore on SQLite.
type Store struct {
	db     *sql.DB
	upsert *sql.Stmt
}

// New opens (or creates) the database at path. ":memory:" keeps it in memory.
func New(path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if p != ":memory:" {
		dir := filepath.Dir(p)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure variables table: %w", err)
	}
	stmt, err := db.PrepareContext(ctx, upsertStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare upsert statement: %w", err)
	}
	return &Store{db: db, upsert: stmt}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	var err error
	if s.upsert != nil {
		err = errors.Join(err, s.upsert.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

// Put writes or replaces one variable.
func (s *Store) Put(ctx context.Context, sessionID, name string, value domain.Value) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal $%s: %w", name, err)
	}
	if _, err := s.upsert.ExecContext(ctx,
		sessionID,
		name,
		value.Kind().String(),
		string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert $%s: %w", name, err)
	}
	return nil
}

// Delete removes one variable.
func (s *Store) Delete(ctx context.Context, sessionID, name string) error {
	if _, err := s.db.ExecContext(ctx, deleteStmt, sessionID, name); err != nil {
		return fmt.Errorf("delete $%s: %w", name, err)
	}
	return nil
}

// Load returns every variable of a session.
func (s *Store) Load(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	rows, err := s.db.QueryContext(ctx, loadStmt, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	vars := make(map[string]domain.Value)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		var v domain.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode $%s: %w", name, err)
		}
		vars[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return vars, nil
}

// Drop removes every variable of a session.
func (s *Store) Drop(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, dropStmt, sessionID); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	return nil
}

// List returns the sessions with at least one variable.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listStmt)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
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
