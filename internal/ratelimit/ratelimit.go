// Package ratelimit implements a client-side sliding window request limiter.
//
// The limiter is advisory backpressure for the UI. The server remains the
// authority on rate limits.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults for the request window.
const (
	DefaultMaxRequests = 100
	DefaultWindow      = time.Minute
)

// Limiter tracks request timestamps in a trailing window.
type Limiter struct {
	mu         sync.Mutex
	now        func() time.Time
	timestamps []time.Time
	window     time.Duration
	max        int
}

// New creates a Limiter admitting max requests per window.
// Non-positive values fall back to the defaults.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{max: max, window: window, now: time.Now}
}

// SetClock overrides the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// CanMakeRequest prunes expired entries and, when under quota, records
// the request and returns true.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	if len(l.timestamps) >= l.max {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// ResetTime is when the oldest request in the window expires.
// With no recorded requests it is the current time.
func (l *Limiter) ResetTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	if len(l.timestamps) == 0 {
		return now
	}
	return l.timestamps[0].Add(l.window)
}

// Remaining returns how many requests the window still admits.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())
	return l.max - len(l.timestamps)
}

// Limit returns the configured maximum.
func (l *Limiter) Limit() int {
	return l.max
}

// Reset forgets all recorded requests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = nil
}

// pruneLocked drops timestamps that have left the window (must hold lock).
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
