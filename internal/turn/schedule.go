package turn

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler holds at most one delayed continuation for a controller. It shares
// the controller's lock: Schedule and Cancel are called with the lock held, and
// the continuation runs with the lock held after checking it was not cancelled.
type Scheduler struct {
	clock clockwork.Clock
	mu    sync.Locker
	gen   uint64
	timer clockwork.Timer
}

func NewScheduler(clock clockwork.Clock, mu sync.Locker) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, mu: mu}
}

// Schedule replaces any pending continuation with fn.
func (s *Scheduler) Schedule(d time.Duration, fn func()) {
	s.Cancel()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.timer = nil
		fn()
	})
}

// Cancel drops the pending continuation, if any. A continuation that already
// fired but is waiting for the lock sees the new generation and does nothing.
func (s *Scheduler) Cancel() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) Pending() bool { return s.timer != nil }
