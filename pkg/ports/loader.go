package ports

import (
	"context"

	"github.com/aretw0/livemd/pkg/domain"
)

// DocumentLoader defines how hosts retrieve Markdown documents.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type DocumentLoader interface {
	// Load retrieves a document by ID.
	Load(ctx context.Context, id string) (*domain.Document, error)

	// List returns the IDs of all available documents.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for re-executing a document on every save.
type Watchable interface {
	// Watch returns a channel that receives the ID of every changed document.
	Watch(ctx context.Context) (<-chan string, error)
}
