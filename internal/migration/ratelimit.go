package migration

import (
	"sync"
	"time"
)

// slidingWindow admits at most max events in any window-long interval.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	events []time.Time
	now    func() time.Time
}

func newSlidingWindow(window time.Duration, max int, now func() time.Time) *slidingWindow {
	return &slidingWindow{window: window, max: max, now: now}
}

// Allow records an event and reports whether it fits in the window.
// Rejected events are not recorded.
func (w *slidingWindow) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	kept := w.events[:0]
	for _, ts := range w.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.events = kept

	if len(w.events) >= w.max {
		return false
	}
	w.events = append(w.events, now)
	return true
}
