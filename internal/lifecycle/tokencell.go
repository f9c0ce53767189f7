package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
)

// TokenCell is the single-writer, many-reader holder of the current
// TokenWithExpiration. Store uses store-release (atomic.Pointer) semantics so
// that readers calling Load always observe a fully constructed value, never a
// partial write. The "initialized" signal is a one-shot latch: it transitions
// false -> true exactly once, on the first non-empty Store, and is never
// reset even if the runner later re-acquires.
type TokenCell struct {
	value     atomic.Pointer[TokenWithExpiration]
	ready     chan struct{}
	readyOnce sync.Once
}

// NewTokenCell returns an empty, uninitialized cell.
func NewTokenCell() *TokenCell {
	return &TokenCell{ready: make(chan struct{})}
}

// Store atomically replaces the current value. The first call to Store
// raises the initialized signal.
func (c *TokenCell) Store(t TokenWithExpiration) {
	c.value.Store(&t)
	c.readyOnce.Do(func() { close(c.ready) })
}

// Load returns the current value and whether the cell has ever been stored
// to.
func (c *TokenCell) Load() (TokenWithExpiration, bool) {
	p := c.value.Load()
	if p == nil {
		return TokenWithExpiration{}, false
	}
	return *p, true
}

// Initialized reports whether Store has ever been called, without blocking.
func (c *TokenCell) Initialized() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// AwaitInitialized blocks until the first Store or until ctx is done,
// returning false in the latter case.
func (c *TokenCell) AwaitInitialized(ctx context.Context) bool {
	select {
	case <-c.ready:
		return true
	case <-ctx.Done():
		return false
	}
}
