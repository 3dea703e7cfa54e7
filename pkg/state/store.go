package state

import (
	"fmt"
	"maps"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/livemd/pkg/domain"
)

// DefaultLimit is the default state size ceiling in bytes.
const DefaultLimit = 1 << 20

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name is a legal variable name (without the leading $).
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// NormalizeName strips an optional leading "$" and validates the rest.
func NormalizeName(name string) (string, error) {
	n := strings.TrimPrefix(strings.TrimSpace(name), "$")
	if !ValidName(n) {
		return "", fmt.Errorf("%w %q", domain.ErrInvalidName, name)
	}
	return n, nil
}

// EntrySize is the number of bytes a variable counts against the ceiling.
func EntrySize(name string, v domain.Value) int {
	return len(name) + v.Size()
}

// Change describes one committed mutation. Deleted changes carry no value.
type Change struct {
	Name    string
	Value   domain.Value
	Deleted bool
}

// Observer is notified, in commit order, after changes are applied.
type Observer func(changes []Change)

// Store is the variable map of a single session. Safe for concurrent use,
// although a session only mutates it from one execution pass at a time.
type Store struct {
	mu        sync.RWMutex
	vars      map[string]domain.Value
	size      int
	limit     int
	observers []Observer
}

// New creates an empty store bounded by limit bytes. A limit <= 0 uses DefaultLimit.
func New(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		vars:  make(map[string]domain.Value),
		limit: limit,
	}
}

// Observe registers an observer for committed changes.
func (s *Store) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Limit returns the size ceiling in bytes.
func (s *Store) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

// SetLimit changes the ceiling for future writes. Existing content is kept even
// if it already exceeds the new limit; only growth is rejected.
func (s *Store) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
}

// Size returns the current accounted size in bytes.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Len returns the number of variables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}

// Get returns the current value of name.
func (s *Store) Get(name string) (domain.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	return v, ok
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all variables.
func (s *Store) Snapshot() map[string]domain.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.vars)
}

// Set writes a single variable.
func (s *Store) Set(name string, v domain.Value) error {
	return s.Apply(map[string]domain.Value{name: v})
}

// Delete removes a variable. Deleting an unknown name is a no-op.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	old, ok := s.vars[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.vars, name)
	s.size -= EntrySize(name, old)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, []Change{{Name: name, Deleted: true}})
}

// Apply writes a batch atomically: either every variable is written or,
// if the batch would exceed the ceiling, none is.
func (s *Store) Apply(batch map[string]domain.Value) error {
	for name, v := range batch {
		if !ValidName(name) {
			return fmt.Errorf("%w %q", domain.ErrInvalidName, name)
		}
		if !v.IsValid() {
			return fmt.Errorf("variable %q: %w", name, domain.ErrInvalidValue)
		}
	}

	s.mu.Lock()
	size := s.size
	for name, v := range batch {
		if old, ok := s.vars[name]; ok {
			size -= EntrySize(name, old)
		}
		size += EntrySize(name, v)
	}
	if size > s.limit && size > s.size {
		limit := s.limit
		s.mu.Unlock()
		oe := &domain.StateOverflowError{Limit: limit, Size: size}
		if len(batch) == 1 {
			for name := range batch {
				oe.Name = name
			}
		}
		return oe
	}

	changes := make([]Change, 0, len(batch))
	for _, name := range sortedKeys(batch) {
		s.vars[name] = batch[name]
		changes = append(changes, Change{Name: name, Value: batch[name]})
	}
	s.size = size
	observers := s.observers
	s.mu.Unlock()

	notify(observers, changes)
	return nil
}

// Replace swaps the whole content for snapshot, atomically.
func (s *Store) Replace(snapshot map[string]domain.Value) error {
	size := 0
	for name, v := range snapshot {
		if !ValidName(name) {
			return fmt.Errorf("%w %q", domain.ErrInvalidName, name)
		}
		if !v.IsValid() {
			return fmt.Errorf("variable %q: %w", name, domain.ErrInvalidValue)
		}
		size += EntrySize(name, v)
	}

	s.mu.Lock()
	if size > s.limit {
		limit := s.limit
		s.mu.Unlock()
		return &domain.StateOverflowError{Limit: limit, Size: size}
	}
	changes := diffChanges(s.vars, snapshot)
	s.vars = maps.Clone(snapshot)
	if s.vars == nil {
		s.vars = make(map[string]domain.Value)
	}
	s.size = size
	observers := s.observers
	s.mu.Unlock()

	notify(observers, changes)
	return nil
}

// Reset removes every variable.
func (s *Store) Reset() {
	_ = s.Replace(nil)
}

// Begin starts a transaction over the current content.
func (s *Store) Begin() *Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Tx{
		store:  s,
		writes: make(map[string]domain.Value),
		size:   s.size,
		limit:  s.limit,
	}
}

func notify(observers []Observer, changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, o := range observers {
		o(changes)
	}
}

func diffChanges(before, after map[string]domain.Value) []Change {
	var changes []Change
	for _, name := range sortedKeys(after) {
		if old, ok := before[name]; !ok || !old.Equal(after[name]) {
			changes = append(changes, Change{Name: name, Value: after[name]})
		}
	}
	for _, name := range sortedKeys(before) {
		if _, ok := after[name]; !ok {
			changes = append(changes, Change{Name: name, Deleted: true})
		}
	}
	return changes
}

func sortedKeys(m map[string]domain.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
