// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Guard wraps a value behind an RWMutex with copy-on-write semantics:
// readers get a value copy, writers replace the whole value. T should be a
// value type or treated as immutable once stored.
type Guard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Get returns a copy of the current value.
func (g *Guard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set atomically replaces the value.
func (g *Guard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Update applies fn to a copy and publishes the result atomically. No
// reader ever observes a partially-applied update.
func (g *Guard[T]) Update(fn func(T) T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = fn(g.value)
	return g.value
}

// Swap atomically replaces and returns the previous value.
func (g *Guard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.value
	g.value = v
	return old
}
