package dnindex

import (
	"sync"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

// Concurrent guards an Index with a read-write lock. Readers run in parallel
// with each other; a writer excludes everyone for the whole of its Update
// callback, so multi-step changes are never observed half applied.
type Concurrent[T any] struct {
	mu  sync.RWMutex
	idx *Index[T]
}

// NewConcurrent returns an empty Concurrent index.
func NewConcurrent[T any]() *Concurrent[T] {
	return &Concurrent[T]{idx: New[T]()}
}

// View runs fn under the read lock.
func (c *Concurrent[T]) View(fn func(*Index[T])) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.idx)
}

// Update runs fn under the write lock.
func (c *Concurrent[T]) Update(fn func(*Index[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.idx)
}

// Get returns the value stored exactly at d.
func (c *Concurrent[T]) Get(d dn.DN) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.Get(d)
}

// Put stores v under d.
func (c *Concurrent[T]) Put(d dn.DN, v T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx.Put(d, v)
}

// Delete removes the value stored exactly at d.
func (c *Concurrent[T]) Delete(d dn.DN) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx.Delete(d)
}

// HasSubtree reports whether any value is stored at or below d.
func (c *Concurrent[T]) HasSubtree(d dn.DN) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.HasSubtree(d)
}

// Nearest returns the value stored at d or at its deepest superior.
func (c *Concurrent[T]) Nearest(d dn.DN) (dn.DN, T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.Nearest(d)
}

// Len returns the number of stored DNs.
func (c *Concurrent[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx.Len()
}
