package resil

import (
	"sync"
	"time"
)

// Entry is a single cached value with its creation time. FreshWithin answers
// the plain freshness question; UsableWithin additionally admits a longer
// grace threshold for degraded-but-usable stale reads.
type Entry[T any] struct {
	Value    T
	CachedAt time.Time
}

// NewEntry stamps v with the package clock.
func NewEntry[T any](v T) Entry[T] {
	return Entry[T]{Value: v, CachedAt: Now()}
}

func (e Entry[T]) IsZero() bool {
	return e.CachedAt.IsZero()
}

func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

func (e Entry[T]) FreshWithin(now time.Time, ttl time.Duration) bool {
	if e.IsZero() {
		return false
	}
	return e.Age(now) < ttl
}

// UsableWithin reports whether the entry may still be served in degraded mode:
// fresh under ttl, or stale but inside the grace window.
func (e Entry[T]) UsableWithin(now time.Time, ttl, grace time.Duration) bool {
	if e.FreshWithin(now, ttl) {
		return true
	}
	if grace <= ttl {
		return false
	}
	return !e.IsZero() && e.Age(now) < grace
}

// TTL is a minimal in-process TTL cache to trim backend reads on hot paths.
// Caller chooses sensible TTL (e.g., 30–60s for per-user settings).
// Lazy expiration on Get.
type TTL[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]mapEntry[V]
}

type mapEntry[V any] struct {
	val V
	exp time.Time
}

func NewTTL[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{data: make(map[K]mapEntry[V])}
}

// Get returns the value and true if found and not expired; otherwise zero value and false.
func (t *TTL[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	t.mu.RUnlock()
	if !ok || Now().After(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (t *TTL[K, V]) Set(k K, v V, ttl time.Duration) {
	t.mu.Lock()
	t.data[k] = mapEntry[V]{val: v, exp: Now().Add(ttl)}
	t.mu.Unlock()
}

func (t *TTL[K, V]) Delete(k K) {
	t.mu.Lock()
	delete(t.data, k)
	t.mu.Unlock()
}
