package clock

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by Advance. Callbacks run synchronously on the
// goroutine calling Advance, in due-time order, and may schedule new callbacks.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	m    *Manual
	at   time.Time
	seq  uint64
	f    func()
	done bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves simulated time forward by d, firing every callback that
// becomes due, including ones scheduled by callbacks fired along the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		next := m.popDueLocked(target)
		if next == nil {
			break
		}
		if next.at.After(m.now) {
			m.now = next.at
		}
		m.mu.Unlock()
		next.f()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// Pending reports how many callbacks are scheduled and not yet fired or stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manual) popDueLocked(target time.Time) *manualTimer {
	best := -1
	for i, t := range m.pending {
		if t.at.After(target) {
			continue
		}
		if best < 0 || t.at.Before(m.pending[best].at) ||
			(t.at.Equal(m.pending[best].at) && t.seq < m.pending[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	t := m.pending[best]
	m.pending = append(m.pending[:best], m.pending[best+1:]...)
	t.done = true
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, p := range t.m.pending {
		if p == t {
			t.m.pending = append(t.m.pending[:i], t.m.pending[i+1:]...)
			break
		}
	}
	return true
}
