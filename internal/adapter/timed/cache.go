// Package timed implements the cache port as an in-process map with a fixed
// time-to-live per entry and lazy expiry on read.
package timed

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is used when New is given a non-positive ttl.
const DefaultTTL = 24 * time.Hour

type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

// fresh reports whether the entry's age at now is within its TTL.
func (e entry) fresh(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

// Cache is a key-value store whose entries expire a fixed duration after
// their last Set. Expiry is checked when a key is read; a stale entry is
// removed by that read. Nothing bounds the number of entries, so processes
// that set many keys they never read again should run StartSweep.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the configured default time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key. Missing and stale keys report
// absent; a stale entry is evicted. A hit changes nothing.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		return nil, false, nil
	}
	if !e.fresh(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key, replacing any previous entry and restarting
// its age at zero. A ttl <= 0 uses the cache's configured TTL.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.now(), ttl: ttl}
	c.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes every stale entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !e.fresh(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartSweep runs Sweep every interval until the returned stop function is
// called. A non-positive interval starts nothing.
func (c *Cache) StartSweep(interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
	return cancel
}
