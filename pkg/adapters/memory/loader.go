package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/livemd/pkg/domain"
)

// Loader implements ports.DocumentLoader using an in-memory map.
type Loader struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewLoader creates a Loader serving the given documents, keyed by ID.
func NewLoader(data map[string]string) *Loader {
	docs := make(map[string]string, len(data))
	for k, v := range data {
		docs[k] = v
	}
	return &Loader{docs: docs}
}

// Put adds or replaces a document.
func (l *Loader) Put(id, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[id] = content
}

// Load retrieves a document by ID.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	content, ok := l.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return &domain.Document{ID: id, Content: content}, nil
}

// List returns all document IDs.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.docs))
	for k := range l.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
