package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/livemd/pkg/domain"
)

// LogHooks returns lifecycle hooks that log passes at info level and
// blocks at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *domain.PassEvent) {
			logger.DebugContext(ctx, "pass started",
				"session_id", e.SessionID,
				"blocks", e.Blocks,
			)
		},
		OnPassEnd: func(ctx context.Context, e *domain.PassEvent) {
			level := slog.LevelInfo
			if e.Status == domain.PassTimedOut {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "pass finished",
				"session_id", e.SessionID,
				"status", e.Status,
				"blocks", e.Blocks,
				"errors", e.Errors,
				"state_size", e.StateSize,
				"duration", e.Duration,
			)
		},
		OnBlockEnd: func(ctx context.Context, e *domain.BlockEvent) {
			logger.DebugContext(ctx, "block finished",
				"session_id", e.SessionID,
				"block_id", e.BlockID,
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
		},
	}
}
