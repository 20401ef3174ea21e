// Package memo provides a single-shot memoization cell
package memo

import "sync"

// Cell computes its value at most once and caches the result, error included
// The zero value is ready to use
type Cell[T any] struct {
	mu   sync.Mutex
	v    T
	err  error
	done bool
}

// Get returns the cached result, running f on the first call only
func (c *Cell[T]) Get(f func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.v, c.err = f()
		c.done = true
	}
	return c.v, c.err
}

// Done reports whether the cell has been computed
func (c *Cell[T]) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
