package middleware_test

import (
	"context"
	"maps"

	"github.com/aretw0/livemd/pkg/domain"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]map[string]domain.Value
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]map[string]domain.Value),
	}
}

func (s *MockStore) Put(ctx context.Context, sessionID, name string, v domain.Value) error {
	if s.data[sessionID] == nil {
		s.data[sessionID] = make(map[string]domain.Value)
	}
	s.data[sessionID][name] = v
	return nil
}

func (s *MockStore) Load(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	vars, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return maps.Clone(vars), nil
}

func (s *MockStore) Delete(ctx context.Context, sessionID, name string) error {
	delete(s.data[sessionID], name)
	return nil
}

func (s *MockStore) Drop(ctx context.Context, sessionID string) error {
	delete(s.data, sessionID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
