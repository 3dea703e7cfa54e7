package ports

import (
	"context"

	"github.com/aretw0/livemd/pkg/domain"
)

// VariableStore persists session variables one row per variable, keyed by
// (sessionID, name). It is fed write-through by the persistence mirror and
// read back when a session is restored.
type VariableStore interface {
	// Put writes or replaces one variable.
	Put(ctx context.Context, sessionID, name string, value domain.Value) error

	// Delete removes one variable. Deleting a missing variable is not an error.
	Delete(ctx context.Context, sessionID, name string) error

	// Load returns every variable of a session.
	// Returns domain.ErrSessionNotFound if the session has no rows.
	Load(ctx context.Context, sessionID string) (map[string]domain.Value, error)

	// Drop removes every variable of a session.
	Drop(ctx context.Context, sessionID string) error

	// List returns the IDs of all sessions with at least one variable.
	List(ctx context.Context) ([]string, error)
}
