package logic

import "time"

// MotionTimer tracks the remaining time of a timed motion or wait phase.
//
// Durations are computed with time.Time.Sub, which uses the monotonic clock
// reading carried by time.Now values, so wall clock steps do not disturb it.
type MotionTimer struct {
	total     time.Duration
	startedAt time.Time
	running   bool
	frozen    bool
	remaining time.Duration // valid while frozen
}

// Start begins a countdown of total from now.
func (t *MotionTimer) Start(total time.Duration, now time.Time) {
	t.total = total
	t.startedAt = now
	t.running = true
	t.frozen = false
	t.remaining = 0
}

// Remaining returns total − (now − startedAt), clamped to zero.
// A frozen or parked timer returns its fixed value.
func (t *MotionTimer) Remaining(now time.Time) time.Duration {
	if t.frozen {
		return t.remaining
	}
	if !t.running {
		return t.total
	}
	r := t.total - now.Sub(t.startedAt)
	if r < 0 {
		return 0
	}
	return r
}

// Elapsed returns the time since Start, regardless of total.
func (t *MotionTimer) Elapsed(now time.Time) time.Duration {
	if !t.running {
		return 0
	}
	e := now.Sub(t.startedAt)
	if e < 0 {
		return 0
	}
	return e
}

// Expired reports whether a running countdown has reached zero.
func (t *MotionTimer) Expired(now time.Time) bool {
	return t.Running() && t.Remaining(now) <= 0
}

// Freeze fixes and returns the remaining time. The start reference is kept.
func (t *MotionTimer) Freeze(now time.Time) time.Duration {
	r := t.Remaining(now)
	t.remaining = r
	t.frozen = true
	return r
}

// Hold parks a duration as the new total without running.
func (t *MotionTimer) Hold(total time.Duration) {
	t.total = total
	t.running = false
	t.frozen = false
	t.remaining = 0
}

// Reset clears the timer.
func (t *MotionTimer) Reset() {
	*t = MotionTimer{}
}

// Total returns the configured total.
func (t *MotionTimer) Total() time.Duration {
	return t.total
}

// Running reports whether a countdown is active.
func (t *MotionTimer) Running() bool {
	return t.running && !t.frozen
}
