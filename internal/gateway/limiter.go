package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// CommandLimiter rate-limits client commands per client ID, so a reconnect
// does not hand a client a fresh budget. Integrity signals bypass it at the
// dispatch layer: throttling focus_lost would favor the team it reports on.
type CommandLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewCommandLimiter allows roughly commandsPerSecond sustained commands with
// the given burst per client.
func NewCommandLimiter(commandsPerSecond float64, burst int) *CommandLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &CommandLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(commandsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether the client may send another command right now.
func (l *CommandLimiter) Allow(clientID string) bool {
	return l.getLimiter(clientID).Allow()
}

func (l *CommandLimiter) getLimiter(clientID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[clientID]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[clientID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[clientID] = limiter
	return limiter
}
