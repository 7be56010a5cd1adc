package logic

import (
	"testing"
	"time"
)

func TestCalibrationWorkflowCommits(t *testing.T) {
	p := &fakePersister{}
	h := newHarness(t, Config{Calibration: DefaultCalibration(), Persister: p})
	h.powerAck()

	h.send(SignalDipOn)
	h.expectState(StateSetupClosingAck)

	h.send(SignalAPressed)
	h.expectState(StateSetupAwaitingStart)
	if s := h.m.Screen(h.now); !s.HasPrompt() {
		t.Error("setup start should show a prompt")
	}

	h.send(SignalAPressed)
	h.expectState(StateSetupOpening)
	if open, _ := h.m.Drives(); !open {
		t.Fatal("setup opening should drive open")
	}

	h.run(12*time.Second, 100*time.Millisecond)
	h.send(SignalAPressed)
	h.expectState(StateSetupAwaitingCloseStart)
	if open, close := h.m.Drives(); open || close {
		t.Fatal("drives should stop at the open limit")
	}

	h.run(25*time.Second, time.Second)
	h.send(SignalAPressed)
	h.expectState(StateSetupClosing)
	if _, close := h.m.Drives(); !close {
		t.Fatal("setup closing should drive closed")
	}

	h.run(11900*time.Millisecond, 100*time.Millisecond)
	h.expectState(StateSetupClosing)
	h.run(100*time.Millisecond, 100*time.Millisecond)
	h.expectState(StateSetupConfirm)

	drive, autoclose := h.m.SetupCandidates()
	if drive != 12*time.Second || autoclose != 25*time.Second {
		t.Fatalf("candidates: got %v/%v, want 12s/25s", drive, autoclose)
	}
	s := h.m.Screen(h.now)
	if s.Label != LabelSetupConfirm || s.Drive != drive || s.Remaining != autoclose {
		t.Errorf("confirm screen: %+v", s)
	}

	h.send(SignalAPressed)
	h.expectState(StateClosed)

	cal := h.m.Calibration()
	if cal.DriveDuration != 12*time.Second || cal.AutocloseDelay != 25*time.Second || !cal.SetupComplete {
		t.Errorf("committed calibration: %+v", cal)
	}
	if len(p.saved) != 1 || p.saved[0] != cal {
		t.Errorf("persisted: %+v", p.saved)
	}
	if h.m.Counts().Calibrations != 1 {
		t.Error("expected calibration count 1")
	}

	// Switch still on: no re-entry until it is cycled
	h.run(5*time.Second, time.Second)
	h.expectState(StateClosed)

	h.send(SignalDipOff)
	h.send(SignalDipOn)
	h.expectState(StateSetupClosingAck)
}

func TestCalibratedValuesDriveNormalOperation(t *testing.T) {
	h := newHarness(t, Config{Calibration: DefaultCalibration()})
	h.powerAck()
	h.send(SignalDipOn)
	h.send(SignalAPressed)
	h.send(SignalAPressed)
	h.run(6*time.Second, 100*time.Millisecond)
	h.send(SignalAPressed)
	h.run(8*time.Second, 100*time.Millisecond)
	h.send(SignalAPressed)
	h.run(6*time.Second, 100*time.Millisecond)
	h.expectState(StateSetupConfirm)
	h.send(SignalAPressed)
	h.send(SignalDipOff)
	h.expectState(StateClosed)

	h.send(SignalAPressed)
	if got := h.m.Total(); got != 6*time.Second {
		t.Errorf("open total: got %v, want 6s", got)
	}
	h.run(6*time.Second, 100*time.Millisecond)
	h.expectState(StateAwaitingAutoclose)
	if got := h.m.Remaining(h.now); got != 8*time.Second {
		t.Errorf("autoclose: got %v, want 8s", got)
	}
	h.run(8*time.Second, 100*time.Millisecond)
	h.expectState(StateClosing)
}

func TestSetupAckWithSwitchOffReturnsClosed(t *testing.T) {
	h := newHarness(t, Config{Calibration: testCalibration()})
	h.powerAck()
	h.send(SignalDipOn)
	h.expectState(StateSetupClosingAck)

	h.send(SignalDipOff)
	h.expectState(StateSetupClosingAck)

	h.send(SignalAPressed)
	h.expectState(StateClosed)
	if h.m.Calibration().DriveDuration != 9*time.Second {
		t.Error("calibration must be untouched")
	}
}

func TestSetupConfirmRestart(t *testing.T) {
	p := &fakePersister{}
	h := newHarness(t, Config{Calibration: testCalibration(), Persister: p})
	reachState(h, StateSetupConfirm)

	h.send(SignalBPressed)
	h.run(time.Second, 100*time.Millisecond)
	h.send(SignalBReleased)
	h.expectState(StateSetupAwaitingStart)

	drive, autoclose := h.m.SetupCandidates()
	if drive != 0 || autoclose != 0 {
		t.Errorf("candidates should be discarded, got %v/%v", drive, autoclose)
	}
	if len(p.saved) != 0 {
		t.Error("nothing should be persisted on restart")
	}
}

func TestSetupConfirmRestartNeedsSwitchOn(t *testing.T) {
	h := newHarness(t, Config{Calibration: testCalibration()})
	reachState(h, StateSetupConfirm)

	h.send(SignalDipOff)
	h.send(SignalBPressed)
	h.send(SignalBReleased)
	h.expectState(StateSetupConfirm)

	// A still commits
	h.send(SignalAPressed)
	h.expectState(StateClosed)
}

func TestSetupConfirmHoldResets(t *testing.T) {
	p := &fakePersister{}
	h := newHarness(t, Config{Calibration: testCalibration(), Persister: p})
	reachState(h, StateSetupConfirm)
	h.m.Events()

	h.send(SignalBPressed)
	h.run(4900*time.Millisecond, 100*time.Millisecond)
	h.expectState(StateSetupConfirm)

	h.run(100*time.Millisecond, 100*time.Millisecond)
	h.expectState(StateUninitialized)
	if len(p.saved) != 0 {
		t.Error("reset must not persist")
	}
	if h.m.Calibration().DriveDuration != 9*time.Second {
		t.Error("reset must keep the previous calibration")
	}

	var sawReset bool
	for _, e := range h.m.Events() {
		if e.Type == EventReset {
			sawReset = true
		}
	}
	if !sawReset {
		t.Error("expected RESET event")
	}

	// The release that ends the hold does not acknowledge power-up
	h.send(SignalBReleased)
	h.expectState(StateUninitialized)
	h.send(SignalBPressed)
	h.send(SignalBReleased)
	h.expectState(StateAwaitingPowerAck)
}

func TestSetupObstructionAbortsToPowerAck(t *testing.T) {
	for _, state := range []GateState{StateSetupOpening, StateSetupClosing} {
		t.Run(string(state), func(t *testing.T) {
			h := newHarness(t, Config{Calibration: testCalibration()})
			reachState(h, state)

			// past the startup grace, short of the setup close timer
			h.now = h.now.Add(3 * time.Second)
			h.amps = 8.0
			h.send(SignalNone)
			if open, close := h.m.Drives(); open || close {
				t.Fatal("drives must stop on trip")
			}
			if s := h.m.Screen(h.now); s.Label != LabelHighCurrent {
				t.Errorf("label: got %q", s.Label)
			}

			h.amps = 0.5
			h.run(time.Second, 100*time.Millisecond)
			h.expectState(StateAwaitingPowerAck)

			drive, autoclose := h.m.SetupCandidates()
			if drive != 0 || autoclose != 0 {
				t.Errorf("candidates should be discarded, got %v/%v", drive, autoclose)
			}
			if h.m.Calibration().DriveDuration != 9*time.Second {
				t.Error("calibration must be untouched")
			}
		})
	}
}

func TestCommitClearsRequireSetup(t *testing.T) {
	h := newHarness(t, Config{Calibration: DefaultCalibration(), RequireSetup: true})
	reachState(h, StateSetupConfirm)
	if !h.m.RequireSetup() {
		t.Fatal("expected setup to be required")
	}
	h.send(SignalAPressed)
	h.send(SignalDipOff)
	h.expectState(StateClosed)
	if h.m.RequireSetup() {
		t.Error("commit should clear the setup requirement")
	}

	h.send(SignalAPressed)
	h.expectState(StateOpening)
}
