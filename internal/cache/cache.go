// Package cache provides the generic keyed incremental cache that keeps
// one remote collection mirrored locally from a stream of row changes.
package cache

import (
	"maps"
	"sync"
)

// Op is a change event operation.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

// Event is one row change for a collection of T. OldRow is set only for
// updates, where it carries the row as it was before the change.
type Event[T any] struct {
	Op     Op
	Row    T
	OldRow T
}

// Insert builds an insert event.
func Insert[T any](row T) Event[T] {
	return Event[T]{Op: OpInsert, Row: row}
}

// Update builds an update event. The old row is needed because the key
// itself may change across an update.
func Update[T any](oldRow, newRow T) Event[T] {
	return Event[T]{Op: OpUpdate, Row: newRow, OldRow: oldRow}
}

// Delete builds a delete event.
func Delete[T any](row T) Event[T] {
	return Event[T]{Op: OpDelete, Row: row}
}

// Cache mirrors one collection as a map from key to row. Events are
// applied in delivery order by a single writer (the connection read
// loop); the mutex exists so snapshot reads from other goroutines never
// observe a half-applied event.
//
// The cache has no validation: the remote store is authoritative, so
// re-inserting an existing key silently overwrites and deleting an
// absent key is a no-op. Both happen legitimately during subscription
// races and out-of-order redelivery.
type Cache[K comparable, T any] struct {
	keyOf func(T) K

	mu   sync.RWMutex
	rows map[K]T

	inserts listenerSet[func(row T)]
	updates listenerSet[func(oldRow, newRow T)]
	deletes listenerSet[func(row T)]
}

// New creates an empty cache keyed by the given projection.
func New[K comparable, T any](keyOf func(T) K) *Cache[K, T] {
	return &Cache[K, T]{
		keyOf: keyOf,
		rows:  make(map[K]T),
	}
}

// Apply applies one change event. Listeners fire after the row map has
// been updated, outside the lock, in application order.
func (c *Cache[K, T]) Apply(ev Event[T]) {
	switch ev.Op {
	case OpInsert:
		c.mu.Lock()
		c.rows[c.keyOf(ev.Row)] = ev.Row
		c.mu.Unlock()
		for _, fn := range c.inserts.get() {
			fn(ev.Row)
		}
	case OpUpdate:
		c.mu.Lock()
		delete(c.rows, c.keyOf(ev.OldRow))
		c.rows[c.keyOf(ev.Row)] = ev.Row
		c.mu.Unlock()
		for _, fn := range c.updates.get() {
			fn(ev.OldRow, ev.Row)
		}
	case OpDelete:
		key := c.keyOf(ev.Row)
		c.mu.Lock()
		_, present := c.rows[key]
		if present {
			delete(c.rows, key)
		}
		c.mu.Unlock()
		if !present {
			return
		}
		for _, fn := range c.deletes.get() {
			fn(ev.Row)
		}
	}
}

// Get returns the row at the given key.
func (c *Cache[K, T]) Get(key K) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.rows[key]
	return row, ok
}

// Len returns the number of cached rows.
func (c *Cache[K, T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Snapshot returns a copy of the current row map. The copy is consistent:
// no concurrently applied event is partially visible in it.
func (c *Cache[K, T]) Snapshot() map[K]T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.rows)
}

// Rows returns a copy of the cached rows in unspecified order.
func (c *Cache[K, T]) Rows() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.rows))
	for _, row := range c.rows {
		out = append(out, row)
	}
	return out
}

// OnInsert registers a listener for insert events. The returned func
// deregisters it; views must call it on teardown so released state is
// never updated.
func (c *Cache[K, T]) OnInsert(fn func(row T)) (remove func()) {
	return c.inserts.add(fn)
}

// OnUpdate registers a listener for update events.
func (c *Cache[K, T]) OnUpdate(fn func(oldRow, newRow T)) (remove func()) {
	return c.updates.add(fn)
}

// OnDelete registers a listener for delete events. Listeners do not fire
// for deletes of absent rows.
func (c *Cache[K, T]) OnDelete(fn func(row T)) (remove func()) {
	return c.deletes.add(fn)
}
