package http

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupThreshold = 500
	limiterMaxIdle          = 10 * time.Minute
)

var errRateLimited = errors.New("too many guesses, slow down")

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// guessLimiter throttles guess submissions per user per hunt. Idle entries
// are pruned once the map grows past the cleanup threshold.
type guessLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// newGuessLimiter returns nil when perMinute is not positive, which disables
// limiting.
func newGuessLimiter(perMinute, burst int) *guessLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &guessLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *guessLimiter) Allow(huntID, userID int64) bool {
	if l == nil {
		return true
	}
	key := fmt.Sprintf("%d:%d", huntID, userID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) > limiterCleanupThreshold {
		cutoff := now.Add(-limiterMaxIdle)
		for k, e := range l.entries {
			if e.lastSeen.Before(cutoff) {
				delete(l.entries, k)
			}
		}
	}
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
