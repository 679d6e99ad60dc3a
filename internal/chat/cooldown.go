package chat

import (
	"sync"
	"time"
)

// Gate enforces the minimum wall-clock interval between consecutive sends.
// It is a plain value object with an injectable clock so cooldown behavior
// is testable without real delays.
type Gate struct {
	mu         sync.Mutex
	lastSentAt time.Time
	minInterval time.Duration
	now        func() time.Time
}

// NewGate creates a cooldown gate.
func NewGate(minInterval time.Duration, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{minInterval: minInterval, now: now}
}

// Allow reports whether a send may proceed, and marks the send time when it
// may. A denied call does not move the window.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastSentAt.IsZero() && now.Sub(g.lastSentAt) < g.minInterval {
		return false
	}
	g.lastSentAt = now
	return true
}
