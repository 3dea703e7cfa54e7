package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

// Mask replaces the value of a masked variable in the bridge.
const Mask = "***"

type piiMiddleware struct {
	next     ports.VariableStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of variables
// whose names match any of the patterns. Masking is one-way; it suits audit
// mirrors rather than stores sessions are restored from.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.VariableStore) ports.VariableStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Put(ctx context.Context, sessionID, name string, value domain.Value) error {
	for _, p := range m.patterns {
		if p.MatchString(name) {
			value = domain.String(Mask)
			break
		}
	}
	return m.next.Put(ctx, sessionID, name, value)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID, name string) error {
	return m.next.Delete(ctx, sessionID, name)
}

func (m *piiMiddleware) Drop(ctx context.Context, sessionID string) error {
	return m.next.Drop(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
