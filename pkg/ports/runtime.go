package ports

import (
	"context"

	"github.com/aretw0/livemd/pkg/domain"
)

// Runtime is the surface transports (HTTP, MCP, CLI) drive.
type Runtime interface {
	// Parse extracts and parses a document without executing it.
	Parse(document string) []domain.Segment

	// Open creates a session. An empty ID asks the runtime to generate one.
	Open(ctx context.Context, sessionID string) (string, error)

	// Close destroys a session and its store.
	Close(ctx context.Context, sessionID string) error

	// Reset clears a session's variables and remembered form answers.
	Reset(ctx context.Context, sessionID string) error

	// Execute runs a full pass over document.
	Execute(ctx context.Context, sessionID, document string, opts domain.ExecuteOptions) (*domain.RenderResult, error)

	// ExecuteDocument loads a document by ID through the configured loader and executes it.
	ExecuteDocument(ctx context.Context, sessionID, documentID string, opts domain.ExecuteOptions) (*domain.RenderResult, error)

	// ExecuteBlock runs a single block body against the session's current store.
	ExecuteBlock(ctx context.Context, sessionID string, kind domain.BlockKind, body string) (*domain.RenderResult, error)

	// GetState returns a snapshot of the session's variables.
	GetState(ctx context.Context, sessionID string) (map[string]domain.Value, error)

	// SetState writes a partial state as one atomic batch.
	SetState(ctx context.Context, sessionID string, partial map[string]domain.Value) error

	// SubmitForm applies answers to the pending form and resumes the pass.
	SubmitForm(ctx context.Context, sessionID, blockID string, answers map[string]any) (*domain.RenderResult, error)

	// Sessions lists the open sessions.
	Sessions() []string
}
