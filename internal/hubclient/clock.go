package hubclient

import "time"

// Clock abstracts time so lifecycle timers can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSlot holds at most one armed timer. Firings carry the sequence
// number they were armed with so a callback that raced with Stop or a
// re-arm is recognised as stale.
type timerSlot struct {
	seq   uint64
	timer Timer
}

func (s *timerSlot) arm(clock Clock, d time.Duration, fire func(seq uint64)) {
	s.stop()
	s.seq++
	seq := s.seq
	s.timer = clock.AfterFunc(d, func() { fire(seq) })
}

// claim reports whether seq is the live firing and disarms the slot.
func (s *timerSlot) claim(seq uint64) bool {
	if s.timer == nil || seq != s.seq {
		return false
	}
	s.timer = nil
	return true
}

func (s *timerSlot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *timerSlot) armed() bool {
	return s.timer != nil
}
