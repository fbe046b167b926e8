// Package ratelimit implements the per-client request limiter that wraps the
// contact endpoint: a fixed window per key, one request per 30 seconds by
// default.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Decision reports the outcome of a limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the whole seconds until the window resets, rounded up.
	// Always positive when Allowed is false.
	RetryAfter int
	ResetAt    time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in fixed windows. Stale windows are pruned
// opportunistically as keys are touched.
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New constructs a Limiter allowing limit requests per period for each key.
func New(limit int, period time.Duration, opts ...Option) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if period <= 0 {
		period = 30 * time.Second
	}
	l := &Limiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Allow records one request against key and reports whether it fits in the
// current window.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: retryAfterSeconds(now, w.resetAt),
			ResetAt:    w.resetAt,
		}
	}

	w.count++
	l.pruneLocked(now)
	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// pruneLocked drops windows that have already reset so the map does not grow
// with one entry per client forever. Caller holds the mutex.
func (l *Limiter) pruneLocked(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
