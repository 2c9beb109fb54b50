// Package timer provides a polled interval timer for the control loop.
package timer

import "time"

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// IntervalTimer reports when a fixed interval has passed since it was last
// reset or last expired. In accumulate mode it also counts how many whole
// intervals went by, so a slow loop can catch up.
type IntervalTimer struct {
	duration   time.Duration
	start      time.Time
	elapsed    uint64
	accumulate bool
	now        Clock
}

// New returns a timer started now.
func New(d time.Duration, accumulate bool) *IntervalTimer {
	return NewWithClock(d, accumulate, time.Now)
}

// NewWithClock returns a timer reading time from now.
func NewWithClock(d time.Duration, accumulate bool, now Clock) *IntervalTimer {
	t := &IntervalTimer{duration: d, accumulate: accumulate, now: now}
	t.Reset()
	return t
}

// Expired reports whether the interval has passed. When it has, the next
// interval starts: at the current time in normal mode, or at the end of the
// last whole interval in accumulate mode.
func (t *IntervalTimer) Expired() bool {
	if t.duration <= 0 {
		return true
	}
	now := t.now()
	since := now.Sub(t.start)
	if since < t.duration {
		return false
	}
	if t.accumulate {
		n := since / t.duration
		t.elapsed += uint64(n)
		t.start = t.start.Add(n * t.duration)
	} else {
		t.start = now
	}
	return true
}

// Intervals returns the whole intervals passed since the previous call and
// clears the count. It is always 0 in normal mode.
func (t *IntervalTimer) Intervals() uint64 {
	if !t.accumulate {
		return 0
	}
	t.Expired()
	n := t.elapsed
	t.elapsed = 0
	return n
}

// Reset restarts the interval at the current time.
func (t *IntervalTimer) Reset() {
	t.start = t.now()
	t.elapsed = 0
}

// SetDuration changes the interval length without restarting it.
func (t *IntervalTimer) SetDuration(d time.Duration) {
	t.duration = d
}

// Duration returns the interval length.
func (t *IntervalTimer) Duration() time.Duration {
	return t.duration
}
