package logic

import "time"

// ObstructionMonitor detects overcurrent and rate-limits trips.
type ObstructionMonitor struct {
	limit   float64
	lockout time.Duration
	grace   time.Duration
	start   time.Time

	lastTripAt time.Time
	tripped    bool
}

// NewObstructionMonitor creates a monitor. start is the controller start time
// used for the startup grace period.
func NewObstructionMonitor(limit float64, lockout, grace time.Duration, start time.Time) *ObstructionMonitor {
	return &ObstructionMonitor{
		limit:   limit,
		lockout: lockout,
		grace:   grace,
		start:   start,
	}
}

// Sample returns true if the reading should trip a reversal.
func (o *ObstructionMonitor) Sample(amps float64, now time.Time) bool {
	if amps < o.limit {
		return false
	}
	if now.Sub(o.start) <= o.grace {
		return false
	}
	if o.tripped && now.Sub(o.lastTripAt) < o.lockout {
		return false
	}
	o.tripped = true
	o.lastTripAt = now
	return true
}

// LastTrip returns the time of the most recent trip and whether one has occurred.
func (o *ObstructionMonitor) LastTrip() (time.Time, bool) {
	return o.lastTripAt, o.tripped
}
