package dispatch

import (
	"context"
	"sync/atomic"
)

// CriticalSection is a context-aware mutual exclusion region.
type CriticalSection struct {
	sem    chan struct{}
	active atomic.Bool
	enters atomic.Int64
}

// NewCriticalSection returns an unlocked section.
func NewCriticalSection() *CriticalSection {
	return &CriticalSection{sem: make(chan struct{}, 1)}
}

// Enter blocks until the section is free or ctx is done.
// The caller must call Leave exactly once after a nil return.
func (c *CriticalSection) Enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case c.sem <- struct{}{}:
		c.active.Store(true)
		c.enters.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave releases the section.
func (c *CriticalSection) Leave() {
	c.active.Store(false)
	<-c.sem
}

// Active reports whether a job currently holds the section.
func (c *CriticalSection) Active() bool {
	return c.active.Load()
}

// Entries returns how many times the section has been entered.
func (c *CriticalSection) Entries() int64 {
	return c.enters.Load()
}
