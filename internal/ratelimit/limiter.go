package ratelimit

import (
	"sync"
	"time"
)

// DefaultClientID is the shared bucket for callers that send no client
// identifier. All anonymous callers compete for the same window on purpose.
const DefaultClientID = "default"

// Limiter admits at most limit requests per client within a trailing window.
// The prune-evaluate-append sequence for a client runs under one mutex, so
// two concurrent calls cannot both claim the last remaining slot.
type Limiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	seen map[string][]time.Time

	now func() time.Time
}

// New creates a limiter admitting limit requests per window per client.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		seen:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records an admission attempt for clientID and reports whether it is
// admitted. A rejected attempt is not recorded against the window.
func (l *Limiter) Allow(clientID string) bool {
	if clientID == "" {
		clientID = DefaultClientID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	kept := l.seen[clientID][:0]
	for _, t := range l.seen[clientID] {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.seen[clientID] = kept

		return false
	}

	l.seen[clientID] = append(kept, now)

	return true
}

// ClientCount reports the number of distinct clients with recorded history.
// Clients whose window has fully expired still count until their next call
// prunes them; this is a stale gauge, never used for admission decisions.
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.seen)
}
