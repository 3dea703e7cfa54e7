package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// errDeadline is returned by the guard once the pass deadline has expired.
var errDeadline = errors.New("pass deadline exceeded")

// Guard bounds a pass with a wall-clock deadline. Each step runs in its own
// goroutine so an overrunning step can be abandoned; a step only writes to a
// staged transaction, so abandoning it never leaves a partial mutation behind.
type Guard struct {
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewGuard starts the deadline clock. A timeout <= 0 disables the deadline.
func NewGuard(parent context.Context, timeout time.Duration) *Guard {
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(parent, timeout)
		return &Guard{parent: parent, ctx: ctx, cancel: cancel, timeout: timeout}
	}
	ctx, cancel := context.WithCancel(parent)
	return &Guard{parent: parent, ctx: ctx, cancel: cancel}
}

// Context is the pass context. It is done once the deadline expired.
func (g *Guard) Context() context.Context { return g.ctx }

// Timeout returns the configured deadline.
func (g *Guard) Timeout() time.Duration { return g.timeout }

// Expired reports whether the deadline has passed.
func (g *Guard) Expired() bool { return g.ctx.Err() != nil }

// Stop releases the deadline timer.
func (g *Guard) Stop() { g.cancel() }

// Run executes fn in its own goroutine and waits for it or for the deadline.
// A panic inside fn is recovered and returned as an error. When the caller's
// context ended first, its error is returned instead of the deadline.
func (g *Guard) Run(fn func(ctx context.Context)) error {
	if g.Expired() {
		return g.cause()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("block panicked: %v", p)
				return
			}
			done <- nil
		}()
		fn(g.ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-g.ctx.Done():
		return g.cause()
	}
}

func (g *Guard) cause() error {
	if err := g.parent.Err(); err != nil {
		return err
	}
	return errDeadline
}
