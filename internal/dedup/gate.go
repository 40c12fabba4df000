// Package dedup suppresses repeated triggers for the same transaction.
package dedup

import (
	"sync"
	"time"
)

// DefaultWindow is how long an accepted signature suppresses identical ones.
const DefaultWindow = 5000 * time.Millisecond

// Gate remembers the last accepted signature and when it was accepted.
// The check and the update happen under one lock, so concurrent callers
// with the same signature inside the window see exactly one acceptance.
type Gate struct {
	lastTrigger   time.Time
	now           func() time.Time
	lastSignature string
	window        time.Duration
	mu            sync.Mutex
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate creates a gate with the given window. A non-positive window uses DefaultWindow.
func NewGate(window time.Duration, opts ...Option) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	g := &Gate{window: window, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Accept reports whether signature may proceed. An accepted signature becomes the new
// reference for later calls; rejected calls leave the state unchanged.
func (g *Gate) Accept(signature string) bool {
	return g.AcceptAt(signature, g.now())
}

// AcceptAt is Accept with an explicit event time, used when replaying recorded events.
func (g *Gate) AcceptAt(signature string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if signature == g.lastSignature && !g.lastTrigger.IsZero() && now.Sub(g.lastTrigger) < g.window {
		return false
	}
	g.lastSignature = signature
	g.lastTrigger = now
	return true
}

// SetWindow changes the suppression window, e.g. after a config reload.
func (g *Gate) SetWindow(window time.Duration) {
	if window <= 0 {
		window = DefaultWindow
	}
	g.mu.Lock()
	g.window = window
	g.mu.Unlock()
}

// Reset forgets the last accepted signature.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSignature = ""
	g.lastTrigger = time.Time{}
}
