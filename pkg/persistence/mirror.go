package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
	"github.com/aretw0/livemd/pkg/state"
)

// DefaultQueueSize bounds the number of pending bridge writes.
const DefaultQueueSize = 1024

// DefaultWriteTimeout bounds a single bridge call.
const DefaultWriteTimeout = 5 * time.Second

type opKind uint8

const (
	opPut opKind = iota
	opDelete
	opDrop
)

type op struct {
	kind      opKind
	sessionID string
	name      string
	value     domain.Value
}

// Mirror replicates committed store changes to a bridge.
type Mirror struct {
	bridge  ports.VariableStore
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan op
	group  errgroup.Group
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithLogger sets the logger used for bridge failures.
func WithLogger(logger *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithQueueSize sets the capacity of the write queue. Writes beyond it are dropped.
func WithQueueSize(n int) MirrorOption {
	return func(m *Mirror) {
		if n > 0 {
			m.queue = make(chan op, n)
		}
	}
}

// WithWriteTimeout bounds every bridge call.
func WithWriteTimeout(d time.Duration) MirrorOption {
	return func(m *Mirror) {
		m.timeout = d
	}
}

// NewMirror starts a mirror writing to bridge. Call Close to flush and stop it.
func NewMirror(bridge ports.VariableStore, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		bridge:  bridge,
		logger:  logging.NewNop(),
		timeout: DefaultWriteTimeout,
		queue:   make(chan op, DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.group.Go(m.drain)
	return m
}

// Attach subscribes the mirror to a session store. Every committed change is
// queued for the bridge in commit order.
func (m *Mirror) Attach(sessionID string, store *state.Store) {
	store.Observe(func(changes []state.Change) {
		for _, c := range changes {
			if c.Deleted {
				m.enqueue(op{kind: opDelete, sessionID: sessionID, name: c.Name})
				continue
			}
			m.enqueue(op{kind: opPut, sessionID: sessionID, name: c.Name, value: c.Value})
		}
	})
}

// Seed queues a full snapshot, used when a session starts from a prior state.
func (m *Mirror) Seed(sessionID string, vars map[string]domain.Value) {
	for name, v := range vars {
		m.enqueue(op{kind: opPut, sessionID: sessionID, name: name, value: v})
	}
}

// Forget queues the removal of every row of a session.
func (m *Mirror) Forget(sessionID string) {
	m.enqueue(op{kind: opDrop, sessionID: sessionID})
}

// Close stops accepting writes and waits until the queue is drained.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()
	return m.group.Wait()
}

func (m *Mirror) enqueue(o op) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- o:
	default:
		m.logger.Warn("bridge queue full, dropping write",
			"session_id", o.sessionID,
			"variable", o.name,
		)
	}
}

func (m *Mirror) drain() error {
	for o := range m.queue {
		if err := m.write(o); err != nil {
			m.logger.Error("bridge write failed",
				"session_id", o.sessionID,
				"variable", o.name,
				"err", err,
			)
		}
	}
	return nil
}

func (m *Mirror) write(o op) error {
	ctx := context.Background()
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	switch o.kind {
	case opPut:
		return m.bridge.Put(ctx, o.sessionID, o.name, o.value)
	case opDelete:
		return m.bridge.Delete(ctx, o.sessionID, o.name)
	default:
		return m.bridge.Drop(ctx, o.sessionID)
	}
}
