package timectrl

import (
	"sync"
	"time"
)

// Clock is an interface for reading wall-clock time. The fixed-step scheduler
// depends on this abstraction rather than time.Now directly so the
// catch-up-overrun path can be driven deterministically in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// System returns a Clock backed by time.Now.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Manual is a Clock whose time only moves when Advance or SetTime is called.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual constructs a manual clock starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time. Implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// SetTime jumps the clock to the given time.
func (m *Manual) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
