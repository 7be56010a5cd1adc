// Package logic contains the pure control logic for the gate actuator.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// GateState is the single source of truth for gate behaviour.
type GateState string

const (
	StateUninitialized           GateState = "UNINITIALIZED"
	StateAwaitingPowerAck        GateState = "AWAITING_POWER_ACK"
	StateClosed                  GateState = "CLOSED"
	StateOpening                 GateState = "OPENING"
	StateOpen                    GateState = "OPEN"
	StateClosing                 GateState = "CLOSING"
	StateStoppedWhileOpening     GateState = "STOPPED_WHILE_OPENING"
	StateStoppedWhileClosing     GateState = "STOPPED_WHILE_CLOSING"
	StateAwaitingAutoclose       GateState = "AWAITING_AUTOCLOSE"
	StateSetupClosingAck         GateState = "SETUP_CLOSING_ACK"
	StateSetupAwaitingStart      GateState = "SETUP_AWAITING_START"
	StateSetupOpening            GateState = "SETUP_OPENING"
	StateSetupAwaitingCloseStart GateState = "SETUP_AWAITING_CLOSE_START"
	StateSetupClosing            GateState = "SETUP_CLOSING"
	StateSetupConfirm            GateState = "SETUP_CONFIRM"
)

// AllStates lists every GateState.
var AllStates = []GateState{
	StateUninitialized,
	StateAwaitingPowerAck,
	StateClosed,
	StateOpening,
	StateOpen,
	StateClosing,
	StateStoppedWhileOpening,
	StateStoppedWhileClosing,
	StateAwaitingAutoclose,
	StateSetupClosingAck,
	StateSetupAwaitingStart,
	StateSetupOpening,
	StateSetupAwaitingCloseStart,
	StateSetupClosing,
	StateSetupConfirm,
}

// IsSetup reports whether the state belongs to the calibration workflow.
func (s GateState) IsSetup() bool {
	switch s {
	case StateSetupClosingAck, StateSetupAwaitingStart, StateSetupOpening,
		StateSetupAwaitingCloseStart, StateSetupClosing, StateSetupConfirm:
		return true
	}
	return false
}

// Signal is a discrete, already-debounced input event.
type Signal string

const (
	SignalNone      Signal = ""
	SignalAPressed  Signal = "A_PRESSED"
	SignalAReleased Signal = "A_RELEASED"
	SignalBPressed  Signal = "B_PRESSED"
	SignalBReleased Signal = "B_RELEASED"
	SignalDipOn     Signal = "DIP_ON"
	SignalDipOff    Signal = "DIP_OFF"
)

// Input is one control cycle: at most one signal plus the tick.
//
// Signal must be SignalNone while the machine is Holding; callers keep
// signals queued until the hold ends. A signal passed during a hold is
// ignored.
type Input struct {
	Signal Signal
	// At is when the debouncer reported Signal. Zero means Time.
	At   time.Time
	Amps float64
	Time time.Time
}

// Output names a drive direction.
type Output string

const (
	OutputOpen  Output = "OPEN"
	OutputClose Output = "CLOSE"
)

// Command sets one drive output.
type Command struct {
	Output   Output
	Asserted bool
}

// Calibration holds the values that time and protect gate motion.
type Calibration struct {
	DriveDuration      time.Duration
	AutocloseDelay     time.Duration
	CurrentLimit       float64 // amps
	ObstructionLockout time.Duration
	SetupComplete      bool
}

// Defaults used on first boot and whenever no calibration has been committed.
const (
	DefaultDriveDuration      = 15 * time.Second
	DefaultAutocloseDelay     = 30 * time.Second
	DefaultCurrentLimit       = 4.0
	DefaultObstructionLockout = 3 * time.Second
	DefaultStartupGrace       = 2 * time.Second
	DefaultNoticeDwell        = 1 * time.Second
	DefaultResetHold          = 5 * time.Second
)

// DefaultCalibration returns the factory calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		DriveDuration:      DefaultDriveDuration,
		AutocloseDelay:     DefaultAutocloseDelay,
		CurrentLimit:       DefaultCurrentLimit,
		ObstructionLockout: DefaultObstructionLockout,
	}
}

// Persister stores a committed calibration.
type Persister interface {
	SaveCalibration(cal Calibration) error
}

// EventType classifies a telemetry event.
type EventType string

const (
	EventStateChange EventType = "STATE_CHANGE"
	EventObstruction EventType = "OBSTRUCTION"
	EventCalibrated  EventType = "CALIBRATED"
	EventReset       EventType = "RESET"
)

// Event is a telemetry record drained from the machine after each cycle.
type Event struct {
	Timestamp time.Time
	Type      EventType
	From      GateState
	To        GateState
	Amps      float64
	Remaining time.Duration
	// Calibration is set on CALIBRATED events.
	Calibration *Calibration
	// Err carries a persist failure on CALIBRATED events.
	Err string
}

// EventCounts tracks gate activity since startup.
type EventCounts struct {
	Opens        int
	Closes       int
	Autocloses   int
	Obstructions int
	Calibrations int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     GateState
	Counts    EventCounts
}
