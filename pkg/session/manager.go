package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	smu      sync.RWMutex
	sessions map[string]*Session

	limit   int
	restore ports.VariableStore
	onOpen  func(*Session)

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLimit sets the size ceiling of new session stores.
func WithLimit(limit int) Option {
	return func(m *Manager) {
		m.limit = limit
	}
}

// WithRestore rehydrates sessions from bridge when they are opened.
func WithRestore(bridge ports.VariableStore) Option {
	return func(m *Manager) {
		m.restore = bridge
	}
}

// WithOnOpen registers a callback run, under the session lock, for every new session.
func WithOnOpen(fn func(*Session)) Option {
	return func(m *Manager) {
		m.onOpen = fn
	}
}

// NewManager creates a new Session Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Open creates a session. An empty ID is replaced by a random UUID.
// With a restore bridge configured, the store starts from the bridge rows.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	var sess *Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if _, ok := m.lookup(sessionID); ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}

		s := newSession(sessionID, m.limit)
		if m.restore != nil {
			rows, err := m.restore.Load(ctx, sessionID)
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
			case err != nil:
				return fmt.Errorf("failed to restore session: %w", err)
			default:
				if err := s.Store.Replace(rows); err != nil {
					return fmt.Errorf("failed to restore session: %w", err)
				}
				m.logger.Debug("session restored", "session_id", sessionID, "variables", len(rows))
			}
		}
		if m.onOpen != nil {
			m.onOpen(s)
		}

		m.smu.Lock()
		m.sessions[sessionID] = s
		m.smu.Unlock()
		sess = s
		return nil
	})
	return sess, err
}

// Close destroys a session and its store.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.smu.Lock()
		defer m.smu.Unlock()
		if _, ok := m.sessions[sessionID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		delete(m.sessions, sessionID)
		return nil
	})
}

// Do runs fn with exclusive access to an open session.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(context.Context, *Session) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sess, ok := m.lookup(sessionID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return fn(ctx, sess)
	})
}

// Exists reports whether a session is open.
func (m *Manager) Exists(sessionID string) bool {
	_, ok := m.lookup(sessionID)
	return ok
}

// List returns the IDs of open sessions, sorted.
func (m *Manager) List() []string {
	m.smu.RLock()
	defer m.smu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) lookup(sessionID string) (*Session, bool) {
	m.smu.RLock()
	defer m.smu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
