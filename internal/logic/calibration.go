package logic

import "time"

// workflow holds the candidate values measured during setup.
type workflow struct {
	stopwatch MotionTimer
	drive     time.Duration
	autoclose time.Duration
}

// setupSignal advances the calibration workflow on a button signal.
// The setup switch is only consulted on SETUP_CLOSING_ACK and SETUP_CONFIRM.
func (m *Machine) setupSignal(sig Signal, now time.Time) []Command {
	switch m.state {
	case StateSetupClosingAck:
		if sig != SignalAPressed {
			return nil
		}
		if !m.dipOn {
			m.setState(StateClosed, now)
			return nil
		}
		m.setup = workflow{}
		m.setState(StateSetupAwaitingStart, now)

	case StateSetupAwaitingStart:
		if sig == SignalAPressed {
			m.setup.stopwatch.Start(0, now)
			m.setState(StateSetupOpening, now)
			return m.driveOpen()
		}

	case StateSetupOpening:
		if sig == SignalAPressed {
			m.setup.drive = m.setup.stopwatch.Elapsed(now)
			cmds := m.stop()
			m.setup.stopwatch.Start(0, now)
			m.setState(StateSetupAwaitingCloseStart, now)
			return cmds
		}

	case StateSetupAwaitingCloseStart:
		if sig == SignalAPressed {
			m.setup.autoclose = m.setup.stopwatch.Elapsed(now)
			m.timer.Start(m.setup.drive, now)
			m.setState(StateSetupClosing, now)
			return m.driveClose()
		}

	case StateSetupConfirm:
		switch sig {
		case SignalAPressed:
			return m.commit(now)
		case SignalBPressed:
			m.bArmed = true
		case SignalBReleased:
			if m.bArmed && m.dipOn {
				m.setup = workflow{}
				m.setState(StateSetupAwaitingStart, now)
			}
		}
	}
	return nil
}

// setupTick handles timing and overcurrent during setup.
func (m *Machine) setupTick(amps float64, now time.Time) []Command {
	switch m.state {
	case StateSetupOpening:
		if m.monitor.Sample(amps, now) {
			return m.trip(now, amps, StateAwaitingPowerAck, false)
		}

	case StateSetupClosing:
		if m.monitor.Sample(amps, now) {
			return m.trip(now, amps, StateAwaitingPowerAck, false)
		}
		if m.timer.Expired(now) {
			cmds := m.stop()
			m.timer.Reset()
			m.setState(StateSetupConfirm, now)
			return cmds
		}

	case StateSetupConfirm:
		if m.bHeld && m.bArmed && now.Sub(m.bPressedAt) >= m.cfg.ResetHold {
			return m.reset(now)
		}
	}
	return nil
}

// commit installs the candidate values and hands them to the persister.
// A persist failure does not block the commit.
func (m *Machine) commit(now time.Time) []Command {
	cal := m.cal
	cal.DriveDuration = m.setup.drive
	cal.AutocloseDelay = m.setup.autoclose
	cal.SetupComplete = true

	m.cal = cal
	m.requireSetup = false
	m.setup = workflow{}
	m.counts.Calibrations++
	if m.dipOn {
		m.setupLatched = true
	}

	ev := Event{Timestamp: now, Type: EventCalibrated, From: m.state, To: StateClosed, Calibration: &cal}
	if m.cfg.Persister != nil {
		if err := m.cfg.Persister.SaveCalibration(cal); err != nil {
			ev.Err = err.Error()
		}
	}
	m.setState(StateClosed, now)
	m.emit(ev)
	return nil
}

// SetupCandidates returns the drive duration and autoclose delay measured so
// far in the current workflow.
func (m *Machine) SetupCandidates() (drive, autoclose time.Duration) {
	return m.setup.drive, m.setup.autoclose
}
