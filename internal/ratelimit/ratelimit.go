// Package ratelimit implements per-identity fixed-window request limiting.
//
// A fixed window admits up to twice the ceiling across a window boundary
// (end of one window plus start of the next). That is acceptable for
// anti-abuse throttling of score submissions.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when an identity exceeded its ceiling for the current window.
var ErrRateLimited = errors.New("rate limited")

// Limiter decides whether one more request from identity is allowed and
// records it either way.
type Limiter interface {
	// Allow consumes one request for identity. It returns ErrRateLimited when
	// the ceiling is exceeded, or another error if the backing store failed.
	Allow(ctx context.Context, identity string) error
}

type window struct {
	mu    sync.Mutex
	count int
	start time.Time
	// dead marks a window removed by Sweep; holders must look it up again.
	dead bool
}

// FixedWindow is an in-process Limiter. Each identity has its own lock, so
// unrelated identities never contend.
type FixedWindow struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	windows sync.Map // identity -> *window
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) { l.now = now }
}

// NewFixedWindow allows limit requests per identity in every window of the given length.
func NewFixedWindow(limit int, window time.Duration, opts ...Option) *FixedWindow {
	l := &FixedWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the configured window length.
func (l *FixedWindow) Window() time.Duration {
	return l.window
}

// Allow implements Limiter. A rejected request still counts towards the window.
func (l *FixedWindow) Allow(_ context.Context, identity string) error {
	for {
		v, _ := l.windows.LoadOrStore(identity, &window{})
		w := v.(*window)

		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}

		now := l.now()
		if w.start.IsZero() || !now.Before(w.start.Add(l.window)) {
			w.start = now
			w.count = 0
		}
		w.count++
		exceeded := w.count > l.limit
		w.mu.Unlock()

		if exceeded {
			return ErrRateLimited
		}
		return nil
	}
}

// Sweep drops windows that have expired and returns how many were removed.
func (l *FixedWindow) Sweep() int {
	now := l.now()
	removed := 0

	l.windows.Range(func(key, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		if !w.start.IsZero() && !now.Before(w.start.Add(l.window)) {
			w.dead = true
			l.windows.Delete(key)
			removed++
		}
		w.mu.Unlock()
		return true
	})

	return removed
}

// Len reports the number of tracked identities.
func (l *FixedWindow) Len() int {
	n := 0
	l.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
