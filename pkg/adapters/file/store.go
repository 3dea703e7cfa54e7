package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/livemd/pkg/domain"
)

// Store implements ports.VariableStore using the local filesystem.
// Each session is one JSON object file mapping variable names to values.
// Row writes are read-modify-write under a process-local mutex and land on
// disk atomically.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".livemd/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".livemd", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sessionID cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid sessionID %q", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+".json"), nil
}

// Put writes one variable.
func (s *Store) Put(ctx context.Context, sessionID, name string, value domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars, err := s.read(sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	if vars == nil {
		vars = make(map[string]domain.Value)
	}
	vars[name] = value
	return s.write(sessionID, vars)
}

// Delete removes one variable. The file goes away with its last variable.
func (s *Store) Delete(ctx context.Context, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars, err := s.read(sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := vars[name]; !ok {
		return nil
	}
	delete(vars, name)
	if len(vars) == 0 {
		return s.remove(sessionID)
	}
	return s.write(sessionID, vars)
}

// Load retrieves the session's variables.
func (s *Store) Load(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(sessionID)
}

// Drop removes the session file.
func (s *Store) Drop(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(sessionID)
}

// List returns all session IDs with a file.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}

func (s *Store) read(sessionID string) (map[string]domain.Value, error) {
	filePath, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var vars map[string]domain.Value
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session variables: %w", err)
	}
	if len(vars) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return vars, nil
}

func (s *Store) remove(sessionID string) error {
	filePath, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// write persists the variables atomically: temp file, fsync, rename.
func (s *Store) write(sessionID string, vars map[string]domain.Value) error {
	destPath, err := s.path(sessionID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session variables: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // No-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing session file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to valid session: %w", err)
	}
	return nil
}
