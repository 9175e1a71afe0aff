package assistant

import (
	"sync"
	"time"
)

// SlidingWindow is a per-caller sliding-window rate limiter, consulted before
// an exchange is started. The orchestrator itself assumes it has already
// been authorized to run.
type SlidingWindow struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewSlidingWindow creates a limiter allowing limit requests per caller key
// within the window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// limit. When denied, retryAfter is how long until the oldest counted
// request falls out of the window.
func (l *SlidingWindow) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false, kept[0].Sub(cutoff)
	}

	l.hits[key] = append(kept, now)
	return true, 0
}
