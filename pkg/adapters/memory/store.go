package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aretw0/livemd/pkg/domain"
)

// Store implements ports.VariableStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[string]domain.Value
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]domain.Value),
	}
}

// Put writes one variable.
func (s *Store) Put(ctx context.Context, sessionID, name string, value domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vars, ok := s.data[sessionID]
	if !ok {
		vars = make(map[string]domain.Value)
		s.data[sessionID] = vars
	}
	vars[name] = value
	return nil
}

// Delete removes one variable. A session left without rows is forgotten.
func (s *Store) Delete(ctx context.Context, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vars, ok := s.data[sessionID]
	if !ok {
		return nil
	}
	delete(vars, name)
	if len(vars) == 0 {
		delete(s.data, sessionID)
	}
	return nil
}

// Load returns a copy of the session's variables so callers cannot mutate the store.
func (s *Store) Load(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vars, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return maps.Clone(vars), nil
}

// Drop removes every variable of a session.
func (s *Store) Drop(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns sessions with at least one variable.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
