// Package rate throttles login attempts per client key. The limiter is
// in-process; the auth handler depends on a narrow interface, so a
// shared store can take its place if the hub ever runs more than one
// replica.
package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter counts hits in fixed windows keyed by caller.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	sweepAt time.Time
}

type bucket struct {
	hits      int
	windowEnd time.Time
}

func NewMemory(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		sweepAt: time.Now().Add(window),
	}
}

// Allow records one hit for key and reports whether it stays under the
// limit. The retry-after duration is only meaningful on denial.
func (l *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		l.buckets[key] = &bucket{hits: 1, windowEnd: now.Add(l.window)}
		return true, 0, nil
	}

	if b.hits >= l.limit {
		retry := b.windowEnd.Sub(now)
		if retry < 0 {
			retry = 0
		}
		return false, retry, nil
	}

	b.hits++
	return true, 0, nil
}

// sweep drops expired buckets so idle keys do not accumulate. It runs
// at most once per window.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	for key, b := range l.buckets {
		if !now.Before(b.windowEnd) {
			delete(l.buckets, key)
		}
	}
	l.sweepAt = now.Add(l.window)
}
