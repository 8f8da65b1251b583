// Package cache provides an in-memory TTL cache used for product search
// results. Entries expire lazily on read; a background sweeper bounds
// memory until Close is called.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// Option customizes an InMemory cache.
type Option func(*options)

type options struct {
	now           func() time.Time
	sweepInterval time.Duration
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets how often expired entries are purged.
// Zero or negative disables the sweeper. Defaults to the TTL.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration, opts ...Option) *InMemory[T] {
	o := options{now: time.Now, sweepInterval: ttl}
	for _, opt := range opts {
		opt(&o)
	}

	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   o.now,
		stop:  make(chan struct{}),
	}
	if o.sweepInterval > 0 {
		go c.sweepLoop(o.sweepInterval)
	}
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
// A non-positive TTL makes Set a no-op.
func (c *InMemory[T]) Set(key string, value T) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of stored entries, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge removes expired entries and returns how many were dropped.
func (c *InMemory[T]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Close stops the background sweeper. Safe to call more than once.
func (c *InMemory[T]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *InMemory[T]) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
