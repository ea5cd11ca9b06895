package clock

import (
	"sync"
	"time"
)

// Manual is a clock that only moves when told to. Due callbacks run
// synchronously on the goroutine that calls Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock *Manual
	at    time.Time
	seq   int
	f     func()
}

// NewManual creates a manual clock reading start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the clock's current reading
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to run once the clock has advanced by d
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{clock: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due in
// deadline order. Timers armed by a callback fire too if they are due before
// the new reading. The clock lock is not held while callbacks run.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.popDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.at
		m.mu.Unlock()

		t.f()
	}
}

// Pending returns the number of timers that have not fired or been stopped
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// popDue removes and returns the earliest timer due at or before target
func (m *Manual) popDue(target time.Time) *manualTimer {
	best := -1
	for i, t := range m.timers {
		if t.at.After(target) {
			continue
		}
		if best < 0 || t.at.Before(m.timers[best].at) ||
			(t.at.Equal(m.timers[best].at) && t.seq < m.timers[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}

	t := m.timers[best]
	m.timers = append(m.timers[:best], m.timers[best+1:]...)
	return t
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, pending := range m.timers {
		if pending == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
