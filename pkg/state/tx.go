package state

import (
	"maps"

	"github.com/aretw0/livemd/pkg/domain"
)

// Tx stages writes on top of a Store. Reads see staged writes first.
// A Tx is owned by one goroutine; it is either committed or dropped.
type Tx struct {
	store  *Store
	writes map[string]domain.Value
	order  []string
	size   int
	limit  int
}

// Get returns the value of name as seen by the transaction.
func (tx *Tx) Get(name string) (domain.Value, bool) {
	if v, ok := tx.writes[name]; ok {
		return v, true
	}
	return tx.store.Get(name)
}

// Lookup adapts Get for template rendering.
func (tx *Tx) Lookup(name string) (domain.Value, bool) {
	return tx.Get(name)
}

// Set stages a single write. A write that would grow the state past the
// ceiling is rejected and leaves the transaction unchanged.
func (tx *Tx) Set(name string, v domain.Value) error {
	size := tx.size + EntrySize(name, v)
	if old, ok := tx.Get(name); ok {
		size -= EntrySize(name, old)
	}
	if size > tx.limit && size > tx.size {
		return &domain.StateOverflowError{Name: name, Limit: tx.limit, Size: size}
	}
	if _, staged := tx.writes[name]; !staged {
		tx.order = append(tx.order, name)
	}
	tx.writes[name] = v
	tx.size = size
	return nil
}

// Apply stages a batch atomically.
func (tx *Tx) Apply(batch map[string]domain.Value) error {
	size := tx.size
	for name, v := range batch {
		if old, ok := tx.Get(name); ok {
			size -= EntrySize(name, old)
		}
		size += EntrySize(name, v)
	}
	if size > tx.limit && size > tx.size {
		return &domain.StateOverflowError{Limit: tx.limit, Size: size}
	}
	for _, name := range sortedKeys(batch) {
		if _, staged := tx.writes[name]; !staged {
			tx.order = append(tx.order, name)
		}
		tx.writes[name] = batch[name]
	}
	tx.size = size
	return nil
}

// Size returns the accounted size including staged writes.
func (tx *Tx) Size() int { return tx.size }

// Pending returns a copy of the staged writes.
func (tx *Tx) Pending() map[string]domain.Value {
	return maps.Clone(tx.writes)
}

// Snapshot returns the store content overlaid with staged writes.
func (tx *Tx) Snapshot() map[string]domain.Value {
	snap := tx.store.Snapshot()
	for k, v := range tx.writes {
		snap[k] = v
	}
	return snap
}

// Commit applies the staged writes to the store in staging order and
// notifies observers. It returns the committed changes.
func (tx *Tx) Commit() []Change {
	if len(tx.writes) == 0 {
		return nil
	}
	s := tx.store
	changes := make([]Change, 0, len(tx.order))

	s.mu.Lock()
	for _, name := range tx.order {
		v := tx.writes[name]
		if old, ok := s.vars[name]; ok {
			s.size -= EntrySize(name, old)
			if old.Equal(v) {
				s.size += EntrySize(name, v)
				continue
			}
		}
		s.vars[name] = v
		s.size += EntrySize(name, v)
		changes = append(changes, Change{Name: name, Value: v})
	}
	observers := s.observers
	s.mu.Unlock()

	tx.writes = make(map[string]domain.Value)
	tx.order = nil
	notify(observers, changes)
	return changes
}
