// Package cache provides a small time-bounded map used for memoizing remote lookups.
package cache

import (
	"sync"
	"time"
)

// Entry is a cached value together with the moment it was stored.
type Entry[V any] struct {
	Value      V
	InsertedAt time.Time
}

// IsStale reports whether an entry inserted at insertedAt has outlived ttl at now.
// An entry exactly ttl old is stale.
func IsStale(insertedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(insertedAt) >= ttl
}

// TTL maps keys to values that expire a fixed duration after insertion. Stale entries are
// never deleted explicitly; they are reported as absent and superseded by the next Set.
type TTL[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[K]Entry[V]
}

type Option func(*options)

type options struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewTTL[K comparable, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[K, V]{
		ttl:     ttl,
		now:     o.now,
		entries: make(map[K]Entry[V]),
	}
}

// Get returns the value for key when present and not stale.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	ent, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || IsStale(ent.InsertedAt, c.now(), c.ttl) {
		var zero V
		return zero, false
	}
	return ent.Value, true
}

// Set stores value under key stamped with the current time.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Value: value, InsertedAt: c.now()}
}

// Len counts stored entries, stale ones included.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
