package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualTimer is a timer armed on a ManualScheduler.
type ManualTimer struct {
	Delay time.Duration

	s       *ManualScheduler
	f       func()
	id      int
	stopped bool
	fired   bool
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *ManualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// ManualScheduler holds timers until the test fires them. Its AfterFunc
// returns a value with a Stop method, matching the session scheduler hook.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*ManualTimer
	nextID int
	armed  chan time.Duration
}

// NewManualScheduler returns an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{armed: make(chan time.Duration, 64)}
}

// AfterFunc records f; it runs only when fired.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) interface{ Stop() bool } {
	s.mu.Lock()
	s.nextID++
	t := &ManualTimer{Delay: d, s: s, f: f, id: s.nextID}
	s.timers = append(s.timers, t)
	s.mu.Unlock()

	select {
	case s.armed <- d:
	default:
	}
	return t
}

// Armed delivers the delay of every timer as it is armed.
func (s *ManualScheduler) Armed() <-chan time.Duration {
	return s.armed
}

// Pending returns the delays of timers that are neither fired nor stopped,
// in arming order.
func (s *ManualScheduler) Pending() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.pending() {
		out = append(out, t.Delay)
	}
	return out
}

// FireAll runs every pending timer in arming order, stopped ones included
// when force is set. It returns how many callbacks ran.
func (s *ManualScheduler) FireAll(force bool) int {
	s.mu.Lock()
	var due []*ManualTimer
	for _, t := range s.timers {
		if t.fired || (t.stopped && !force) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })
	for _, t := range due {
		t.f()
	}
	return len(due)
}

// FireNext runs the oldest pending timer. It reports whether one ran.
func (s *ManualScheduler) FireNext() bool {
	s.mu.Lock()
	pending := s.pending()
	if len(pending) == 0 {
		s.mu.Unlock()
		return false
	}
	t := pending[0]
	t.fired = true
	s.mu.Unlock()

	t.f()
	return true
}

func (s *ManualScheduler) pending() []*ManualTimer {
	var out []*ManualTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}
