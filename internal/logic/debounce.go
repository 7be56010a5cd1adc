package logic

import "time"

// Level is the debounced level of a single input.
type Level string

const (
	LevelHigh Level = "HIGH"
	LevelLow  Level = "LOW"
)

// Levels is a single raw sample of the three inputs.
type Levels struct {
	A    bool // true = pressed
	B    bool // true = pressed
	Dip  bool // true = setup switch on
	Time time.Time
}

// ChannelState tracks debounce state for a single input.
type ChannelState struct {
	// Current stable (debounced) level
	Stable Level
	// Pending level during debounce
	Pending Level
	// Time when pending level was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Debouncer turns raw input levels into discrete signals once each level has
// been stable for the settle window.
type Debouncer struct {
	settle    time.Duration
	a         ChannelState
	b         ChannelState
	dip       ChannelState
	baselined bool
}

// NewDebouncer creates a debouncer with the given settle window.
func NewDebouncer(settle time.Duration) *Debouncer {
	return &Debouncer{settle: settle}
}

// Process takes a new raw sample and returns any signals to dispatch, ordered
// A, B, Dip. No button signals are emitted until a baseline is established;
// at baseline a DIP_ON is emitted if the setup switch is already on.
func (d *Debouncer) Process(in Levels) []Signal {
	aChanged := d.processChannel(&d.a, levelOf(in.A), in.Time)
	bChanged := d.processChannel(&d.b, levelOf(in.B), in.Time)
	dipChanged := d.processChannel(&d.dip, levelOf(in.Dip), in.Time)

	if !d.baselined {
		if d.a.Baselined && d.b.Baselined && d.dip.Baselined {
			d.baselined = true
			if d.dip.Stable == LevelHigh {
				return []Signal{SignalDipOn}
			}
		}
		return nil
	}

	var signals []Signal
	if aChanged {
		signals = append(signals, edge(d.a.Stable, SignalAPressed, SignalAReleased))
	}
	if bChanged {
		signals = append(signals, edge(d.b.Stable, SignalBPressed, SignalBReleased))
	}
	if dipChanged {
		signals = append(signals, edge(d.dip.Stable, SignalDipOn, SignalDipOff))
	}
	return signals
}

// processChannel handles debounce logic for a single input.
// Returns true if the stable level changed after baseline.
func (d *Debouncer) processChannel(ch *ChannelState, level Level, now time.Time) bool {
	if !ch.Baselined {
		if ch.Pending != level {
			ch.Pending = level
			ch.PendingSince = now
			return false
		}
		if now.Sub(ch.PendingSince) >= d.settle {
			ch.Stable = level
			ch.Baselined = true
			ch.Pending = ""
		}
		return false
	}

	if level == ch.Stable {
		ch.Pending = ""
		return false
	}

	if ch.Pending != level {
		ch.Pending = level
		ch.PendingSince = now
		return false
	}

	if now.Sub(ch.PendingSince) >= d.settle {
		ch.Stable = level
		ch.Pending = ""
		return true
	}
	return false
}

func levelOf(b bool) Level {
	if b {
		return LevelHigh
	}
	return LevelLow
}

func edge(l Level, rising, falling Signal) Signal {
	if l == LevelHigh {
		return rising
	}
	return falling
}

// IsBaselined returns whether the debouncer has established a baseline.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// CurrentLevels returns the stable levels of A, B and the setup switch.
func (d *Debouncer) CurrentLevels() (a, b, dip Level) {
	return d.a.Stable, d.b.Stable, d.dip.Stable
}
