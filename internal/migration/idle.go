package migration

import (
	"context"
	"sync/atomic"
	"time"
)

// ActivityScheduler treats the daemon as idle once nothing has called Touch
// for a quiet period. The control API and the sync job touch it.
type ActivityScheduler struct {
	quiet  time.Duration
	budget time.Duration
	last   atomic.Int64
	now    func() time.Time
}

// NewActivityScheduler grants ticks of budget after quiet idle time.
func NewActivityScheduler(quiet, budget time.Duration) *ActivityScheduler {
	return &ActivityScheduler{quiet: quiet, budget: budget, now: time.Now}
}

// Touch records foreground activity.
func (s *ActivityScheduler) Touch() {
	s.last.Store(s.now().UnixNano())
}

// WaitIdle blocks until no activity has been seen for the quiet period.
func (s *ActivityScheduler) WaitIdle(ctx context.Context) (time.Duration, error) {
	for {
		last := s.last.Load()
		wait := s.quiet
		if last != 0 {
			wait -= s.now().Sub(time.Unix(0, last))
		} else {
			wait = 0
		}
		if wait <= 0 {
			return s.budget, nil
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}
