package logic

import "time"

// Config configures a Machine.
type Config struct {
	Calibration Calibration
	// StartupGrace suppresses obstruction trips right after power-on.
	StartupGrace time.Duration
	// NoticeDwell is how long the HIGH CURRENT notice holds before reversing.
	NoticeDwell time.Duration
	// ResetHold is how long ButtonB must be held in SETUP_CONFIRM to reset.
	ResetHold time.Duration
	// RequireSetup blocks normal driving until a calibration is committed.
	RequireSetup bool
	// Persister receives committed calibrations. May be nil.
	Persister Persister
}

// notice is the hold window that follows an obstruction trip.
type notice struct {
	active bool
	until  time.Time
	next   GateState
	total  time.Duration
	drive  bool
}

// Machine is the gate state machine. It owns the gate state, the motion timer,
// the obstruction monitor and the calibration workflow. It is not safe for
// concurrent use: all calls must come from the control cycle.
type Machine struct {
	cfg   Config
	cal   Calibration
	state GateState
	start time.Time

	timer   MotionTimer
	monitor *ObstructionMonitor
	setup   workflow
	notice  notice

	userStopped  bool
	requireSetup bool
	setupLatched bool

	// input levels as seen through signals
	bHeld      bool
	bArmed     bool
	bPressedAt time.Time
	dipOn      bool

	openOn  bool
	closeOn bool

	lastAmps      float64
	events        []Event
	counts        EventCounts
	lastHeartbeat time.Time
}

// NewMachine creates a machine in UNINITIALIZED. Zero durations and a zero
// current limit in cfg are replaced by defaults.
func NewMachine(cfg Config, start time.Time) *Machine {
	if cfg.StartupGrace == 0 {
		cfg.StartupGrace = DefaultStartupGrace
	}
	if cfg.NoticeDwell == 0 {
		cfg.NoticeDwell = DefaultNoticeDwell
	}
	if cfg.ResetHold == 0 {
		cfg.ResetHold = DefaultResetHold
	}
	if cfg.Calibration.CurrentLimit <= 0 {
		cfg.Calibration.CurrentLimit = DefaultCurrentLimit
	}
	if cfg.Calibration.ObstructionLockout == 0 {
		cfg.Calibration.ObstructionLockout = DefaultObstructionLockout
	}

	return &Machine{
		cfg:           cfg,
		cal:           cfg.Calibration,
		state:         StateUninitialized,
		start:         start,
		monitor:       NewObstructionMonitor(cfg.Calibration.CurrentLimit, cfg.Calibration.ObstructionLockout, cfg.StartupGrace, start),
		requireSetup:  cfg.RequireSetup,
		lastHeartbeat: start,
	}
}

// Handle runs one control cycle and returns the drive commands to apply, in
// order. The caller must not pass a signal while Holding: such a signal is
// ignored entirely, levels included.
func (m *Machine) Handle(in Input) []Command {
	now := in.Time
	m.lastAmps = in.Amps

	if m.notice.active {
		return m.resolveNotice(now)
	}

	at := in.At
	if at.IsZero() {
		at = now
	}
	m.track(in.Signal, at)

	var cmds []Command
	if in.Signal != SignalNone {
		cmds = append(cmds, m.dispatch(in.Signal, now)...)
	}
	return append(cmds, m.tick(in.Amps, now)...)
}

// track records input levels carried by signals. at is when the signal
// was debounced.
func (m *Machine) track(sig Signal, at time.Time) {
	switch sig {
	case SignalBPressed:
		m.bHeld = true
		m.bPressedAt = at
	case SignalBReleased:
		m.bHeld = false
	case SignalDipOn:
		m.dipOn = true
	case SignalDipOff:
		m.dipOn = false
		m.setupLatched = false
	}
}

func (m *Machine) dispatch(sig Signal, now time.Time) []Command {
	switch m.state {
	case StateUninitialized:
		switch sig {
		case SignalBPressed:
			m.bArmed = true
		case SignalBReleased:
			if m.bArmed {
				m.setState(StateAwaitingPowerAck, now)
			}
		}

	case StateAwaitingPowerAck:
		switch sig {
		case SignalBPressed:
			return m.driveClose()
		case SignalBReleased:
			return m.stop()
		case SignalAPressed:
			cmds := m.stop()
			m.timer.Reset()
			m.setState(StateClosed, now)
			return cmds
		}

	case StateClosed:
		if sig == SignalAPressed && !m.requireSetup {
			m.userStopped = false
			return m.startOpening(m.cal.DriveDuration, now)
		}

	case StateOpen, StateAwaitingAutoclose:
		if sig == SignalAPressed {
			return m.startClosing(m.cal.DriveDuration, now)
		}

	case StateOpening:
		if sig == SignalAPressed {
			return m.stopMidway(StateStoppedWhileOpening, now)
		}

	case StateClosing:
		if sig == SignalAPressed {
			return m.stopMidway(StateStoppedWhileClosing, now)
		}

	case StateStoppedWhileOpening:
		if sig == SignalAPressed {
			return m.startClosing(m.timer.Total(), now)
		}

	case StateStoppedWhileClosing:
		if sig == SignalAPressed {
			m.userStopped = true
			return m.startOpening(m.timer.Total(), now)
		}

	default:
		if m.state.IsSetup() {
			return m.setupSignal(sig, now)
		}
	}
	return nil
}

func (m *Machine) tick(amps float64, now time.Time) []Command {
	switch m.state {
	case StateOpening:
		if m.monitor.Sample(amps, now) {
			return m.trip(now, amps, StateClosing, true)
		}
		if m.timer.Expired(now) {
			return m.completeOpening(now)
		}

	case StateClosing:
		if m.monitor.Sample(amps, now) {
			return m.trip(now, amps, StateOpening, true)
		}
		if m.timer.Expired(now) {
			cmds := m.stop()
			m.timer.Reset()
			m.setState(StateClosed, now)
			return cmds
		}

	case StateAwaitingAutoclose:
		if m.timer.Expired(now) {
			m.counts.Autocloses++
			return m.startClosing(m.cal.DriveDuration, now)
		}

	case StateAwaitingPowerAck:
		if m.closeOn && m.monitor.Sample(amps, now) {
			return m.trip(now, amps, StateAwaitingPowerAck, false)
		}

	case StateClosed:
		if m.dipOn && !m.setupLatched {
			m.setState(StateSetupClosingAck, now)
		}

	default:
		if m.state.IsSetup() {
			return m.setupTick(amps, now)
		}
	}
	return nil
}

func (m *Machine) completeOpening(now time.Time) []Command {
	cmds := m.stop()
	if m.userStopped {
		m.userStopped = false
		m.timer.Reset()
		m.setState(StateOpen, now)
		return cmds
	}
	m.timer.Start(m.cal.AutocloseDelay, now)
	m.setState(StateAwaitingAutoclose, now)
	return cmds
}

func (m *Machine) startOpening(total time.Duration, now time.Time) []Command {
	m.timer.Start(total, now)
	m.counts.Opens++
	m.setState(StateOpening, now)
	return m.driveOpen()
}

func (m *Machine) startClosing(total time.Duration, now time.Time) []Command {
	m.timer.Start(total, now)
	m.counts.Closes++
	m.setState(StateClosing, now)
	return m.driveClose()
}

// stopMidway stops a timed motion and remembers the distance travelled, which
// is the drive time needed to go back.
func (m *Machine) stopMidway(next GateState, now time.Time) []Command {
	remaining := m.timer.Freeze(now)
	m.timer.Hold(m.timer.Total() - remaining)
	cmds := m.stop()
	m.setState(next, now)
	return cmds
}

// trip stops the drives and opens the notice window. When reverse is set the
// drive toward next starts after the dwell for the distance travelled so far.
func (m *Machine) trip(now time.Time, amps float64, next GateState, reverse bool) []Command {
	var total time.Duration
	if reverse {
		remaining := m.timer.Freeze(now)
		total = m.timer.Total() - remaining
	}
	m.notice = notice{
		active: true,
		until:  now.Add(m.cfg.NoticeDwell),
		next:   next,
		total:  total,
		drive:  reverse,
	}
	m.counts.Obstructions++
	m.emit(Event{
		Timestamp: now,
		Type:      EventObstruction,
		From:      m.state,
		To:        next,
		Amps:      amps,
		Remaining: total,
	})
	return m.stop()
}

func (m *Machine) resolveNotice(now time.Time) []Command {
	if now.Before(m.notice.until) {
		return nil
	}
	n := m.notice
	m.notice = notice{}

	if n.drive {
		switch n.next {
		case StateOpening:
			return m.startOpening(n.total, now)
		case StateClosing:
			return m.startClosing(n.total, now)
		}
	}
	m.timer.Reset()
	m.setup = workflow{}
	m.setState(n.next, now)
	return nil
}

// reset returns the controller to its cold-start run state.
func (m *Machine) reset(now time.Time) []Command {
	cmds := m.stop()
	from := m.state
	m.timer.Reset()
	m.setup = workflow{}
	m.notice = notice{}
	m.userStopped = false
	m.setState(StateUninitialized, now)
	m.emit(Event{Timestamp: now, Type: EventReset, From: from, To: StateUninitialized})
	return cmds
}

func (m *Machine) setState(next GateState, now time.Time) {
	if next == m.state {
		return
	}
	m.emit(Event{
		Timestamp: now,
		Type:      EventStateChange,
		From:      m.state,
		To:        next,
		Amps:      m.lastAmps,
		Remaining: m.timer.Remaining(now),
	})
	m.state = next
	m.bArmed = false
}

func (m *Machine) emit(e Event) {
	m.events = append(m.events, e)
}

func (m *Machine) driveOpen() []Command {
	m.closeOn = false
	m.openOn = true
	return []Command{{Output: OutputClose, Asserted: false}, {Output: OutputOpen, Asserted: true}}
}

func (m *Machine) driveClose() []Command {
	m.openOn = false
	m.closeOn = true
	return []Command{{Output: OutputOpen, Asserted: false}, {Output: OutputClose, Asserted: true}}
}

func (m *Machine) stop() []Command {
	m.openOn = false
	m.closeOn = false
	return []Command{{Output: OutputOpen, Asserted: false}, {Output: OutputClose, Asserted: false}}
}

// State returns the current gate state.
func (m *Machine) State() GateState {
	return m.state
}

// Drives returns the asserted state of the open and close outputs.
func (m *Machine) Drives() (open, close bool) {
	return m.openOn, m.closeOn
}

// Remaining returns the live remaining time of the current motion or wait,
// or the remembered duration while stopped.
func (m *Machine) Remaining(now time.Time) time.Duration {
	return m.timer.Remaining(now)
}

// Total returns the total of the current or remembered motion.
func (m *Machine) Total() time.Duration {
	return m.timer.Total()
}

// Calibration returns the calibration in use.
func (m *Machine) Calibration() Calibration {
	return m.cal
}

// UserStopped reports whether the current opening was a user reversal.
func (m *Machine) UserStopped() bool {
	return m.userStopped
}

// RequireSetup reports whether driving is blocked pending calibration.
func (m *Machine) RequireSetup() bool {
	return m.requireSetup
}

// Holding reports whether the obstruction notice window is active. The
// control cycle must not dequeue input signals while holding.
func (m *Machine) Holding() bool {
	return m.notice.active
}

// LastObstruction returns the time of the most recent obstruction trip and
// whether one has occurred.
func (m *Machine) LastObstruction() (time.Time, bool) {
	return m.monitor.LastTrip()
}

// Events returns and clears the telemetry events recorded since the last call.
func (m *Machine) Events() []Event {
	ev := m.events
	m.events = nil
	return ev
}

// Counts returns a copy of the activity counters.
func (m *Machine) Counts() EventCounts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed
// or if interval is <= 0 (disabled).
func (m *Machine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.start),
		State:     m.state,
		Counts:    m.counts,
	}
}
