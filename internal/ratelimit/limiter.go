// Package ratelimit implements the gateway's fixed-window request limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow  = time.Minute
	DefaultMaxKeys = 100000
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per caller key in fixed windows. A key's window
// starts on its first request and resets on the first request after it ends.
// The number of tracked keys is bounded; expired windows are swept by a
// background goroutine started with Start.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	window  time.Duration
	maxKeys int
	now     func() time.Time

	sweepEvery time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow sets the window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithMaxKeys bounds the number of tracked keys.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) { l.maxKeys = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		window:  DefaultWindow,
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if l.window <= 0 {
		l.window = DefaultWindow
	}
	if l.maxKeys <= 0 {
		l.maxKeys = DefaultMaxKeys
	}
	l.sweepEvery = l.window
	return l
}

// Allow records one request for key and reports whether it is within limit.
func (l *Limiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok {
		if len(l.windows) >= l.maxKeys {
			l.makeRoomLocked(now)
		}
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	} else if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(l.window)
	}

	w.count++
	return w.count <= limit
}

// makeRoomLocked drops expired windows and, if the map is still full, the
// window that resets soonest. Must be called with mu held.
func (l *Limiter) makeRoomLocked(now time.Time) {
	l.sweepLocked(now)
	if len(l.windows) < l.maxKeys {
		return
	}

	var victim string
	var earliest time.Time
	for k, w := range l.windows {
		if victim == "" || w.resetAt.Before(earliest) {
			victim, earliest = k, w.resetAt
		}
	}
	delete(l.windows, victim)
}

func (l *Limiter) sweepLocked(now time.Time) int {
	removed := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Sweep removes every expired window and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Start runs the periodic sweep until ctx is done or Close is called.
func (l *Limiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.sweepEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-ctx.Done():
				return
			case <-l.done:
				return
			}
		}
	}()
}

// Close stops the sweep goroutine. It is safe to call multiple times.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
