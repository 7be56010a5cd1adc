package logic

import "time"

// Display labels. Setup steps between the closed acknowledgement and the
// confirmation show prompts instead.
const (
	LabelClosed          = "CLOSED"
	LabelOpening         = "OPENING"
	LabelOpen            = "OPEN"
	LabelClosing         = "CLOSING"
	LabelStoppedOpening  = "STOPPED OPENING"
	LabelStoppedClosing  = "STOPPED CLOSING"
	LabelAutoclose       = "AUTOCLOSE WAIT"
	LabelPowerRestored   = "POWER RESTORED"
	LabelPowerAck        = "CLOSE GATE (B)"
	LabelSetupClosingAck = "SETUP: CLOSED?"
	LabelSetupConfirm    = "SETUP CONFIRM"
	LabelHighCurrent     = "HIGH CURRENT"
	LabelSetupNeeded     = "SETUP NEEDED"
)

var stateLabels = map[GateState]string{
	StateClosed:              LabelClosed,
	StateOpening:             LabelOpening,
	StateOpen:                LabelOpen,
	StateClosing:             LabelClosing,
	StateStoppedWhileOpening: LabelStoppedOpening,
	StateStoppedWhileClosing: LabelStoppedClosing,
	StateAwaitingAutoclose:   LabelAutoclose,
	StateUninitialized:       LabelPowerRestored,
	StateAwaitingPowerAck:    LabelPowerAck,
	StateSetupClosingAck:     LabelSetupClosingAck,
	StateSetupConfirm:        LabelSetupConfirm,
}

var setupPrompts = map[GateState][2]string{
	StateSetupAwaitingStart:      {"SETUP: PRESS A", "TO START OPENING"},
	StateSetupOpening:            {"PRESS A WHEN", "GATE FULLY OPEN"},
	StateSetupAwaitingCloseStart: {"WAIT AUTOCLOSE", "THEN PRESS A"},
	StateSetupClosing:            {"SETUP: CLOSING", "PLEASE WAIT"},
}

// Screen is what the display should show for one cycle.
type Screen struct {
	Label string
	// Prompt replaces Label and the numeric fields when set.
	Prompt    [2]string
	Drive     time.Duration
	Remaining time.Duration
	Amps      float64
}

// HasPrompt reports whether the screen is an instructional prompt.
func (s Screen) HasPrompt() bool {
	return s.Prompt[0] != "" || s.Prompt[1] != ""
}

// Screen returns the display contents for the current state.
func (m *Machine) Screen(now time.Time) Screen {
	if m.notice.active {
		return Screen{Label: LabelHighCurrent, Drive: m.cal.DriveDuration, Amps: m.lastAmps}
	}
	if p, ok := setupPrompts[m.state]; ok {
		return Screen{Prompt: p}
	}

	s := Screen{
		Label:     stateLabels[m.state],
		Drive:     m.cal.DriveDuration,
		Remaining: m.timer.Remaining(now),
		Amps:      m.lastAmps,
	}
	switch {
	case m.state == StateSetupConfirm:
		s.Drive = m.setup.drive
		s.Remaining = m.setup.autoclose
	case m.state == StateClosed && m.requireSetup:
		s.Label = LabelSetupNeeded
	}
	return s
}
