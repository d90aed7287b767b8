// Package ratelimit gates inbound chat events with a per-session
// minimum interval so rapid-fire duplicates never reach the engine.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks the last accepted event time per session id. State is
// process-lifetime only. The map grows with the number of distinct
// sessions seen; Evict trims entries that have gone quiet.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	last   map[int64]time.Time
}

func New(window time.Duration) *Limiter {
	if window < 0 {
		window = 0
	}
	return &Limiter{
		window: window,
		last:   make(map[int64]time.Time),
	}
}

// Allow reports whether an event for sessionID at now should be
// processed. A rejected event does not refresh the timestamp, so a
// burst cannot lock a user out indefinitely.
func (l *Limiter) Allow(sessionID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[sessionID]; ok && now.Sub(prev) < l.window {
		return false
	}
	l.last[sessionID] = now
	return true
}

// Evict drops entries whose last accepted event is older than maxIdle
// and returns how many were removed.
func (l *Limiter) Evict(now time.Time, maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, at := range l.last {
		if now.Sub(at) > maxIdle {
			delete(l.last, id)
			removed++
		}
	}
	return removed
}
