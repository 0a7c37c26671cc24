package xp

import "time"

// Clock abstracts wall-clock time so cooldowns and voice ticks can be driven
// by tests.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer the engine needs
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// SystemClock is the real clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewTimer wraps time.NewTimer
func (SystemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time { return s.t.C }
func (s systemTimer) Stop() bool          { return s.t.Stop() }
