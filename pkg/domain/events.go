package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPassStart  EventType = "pass_start"
	EventPassEnd    EventType = "pass_end"
	EventBlockStart EventType = "block_start"
	EventBlockEnd   EventType = "block_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// PassEvent marks the beginning or the end of an execution pass.
type PassEvent struct {
	EventBase
	Status    PassStatus    `json:"status,omitempty"`
	Blocks    int           `json:"blocks"`
	Errors    int           `json:"errors,omitempty"`
	StateSize int           `json:"state_size"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
}

// BlockEvent marks the execution of one block.
type BlockEvent struct {
	EventBase
	BlockID  string        `json:"block_id"`
	Kind     BlockKind     `json:"kind"`
	Outcome  string        `json:"outcome,omitempty"` // ok, error, skipped, paused
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// LifecycleHooks defines callbacks for runtime observability.
// OnBlockStart runs on the goroutine executing the block, so a slow hook
// counts against the pass deadline.
type LifecycleHooks struct {
	OnPassStart  func(context.Context, *PassEvent)
	OnPassEnd    func(context.Context, *PassEvent)
	OnBlockStart func(context.Context, *BlockEvent)
	OnBlockEnd   func(context.Context, *BlockEvent)
}

// Combine returns hooks that call every non-nil hook in order.
func Combine(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *PassEvent) {
			for _, h := range all {
				if h.OnPassStart != nil {
					h.OnPassStart(ctx, e)
				}
			}
		},
		OnPassEnd: func(ctx context.Context, e *PassEvent) {
			for _, h := range all {
				if h.OnPassEnd != nil {
					h.OnPassEnd(ctx, e)
				}
			}
		},
		OnBlockStart: func(ctx context.Context, e *BlockEvent) {
			for _, h := range all {
				if h.OnBlockStart != nil {
					h.OnBlockStart(ctx, e)
				}
			}
		},
		OnBlockEnd: func(ctx context.Context, e *BlockEvent) {
			for _, h := range all {
				if h.OnBlockEnd != nil {
					h.OnBlockEnd(ctx, e)
				}
			}
		},
	}
}
