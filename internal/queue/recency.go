package queue

import (
	"sync"
	"time"
)

// recallTracker remembers the last recall per service for a short window so
// the latest-calls view can flag an announcement as a recall. Process-local
// and lost on restart; only display semantics depend on it. Callers pass
// the clock so marks and checks share one notion of now.
type recallTracker struct {
	mu     sync.Mutex
	window time.Duration
	marks  map[string]time.Time
}

func newRecallTracker(window time.Duration) *recallTracker {
	return &recallTracker{
		window: window,
		marks:  make(map[string]time.Time),
	}
}

func (t *recallTracker) Mark(service string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.marks[service] = now
}

// IsRecent reports whether the service was recalled within the window and
// evicts stale marks as it goes.
func (t *recallTracker) IsRecent(service string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	marked, ok := t.marks[service]
	if !ok {
		return false
	}
	if now.Sub(marked) > t.window {
		delete(t.marks, service)
		return false
	}
	return true
}
