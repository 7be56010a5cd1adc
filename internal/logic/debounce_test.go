package logic

import (
	"testing"
	"time"
)

// setupBaselinedDebouncer returns a debouncer baselined with the given levels.
func setupBaselinedDebouncer(t *testing.T, a, b, dip bool) *Debouncer {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(50 * time.Millisecond)
	d.Process(Levels{A: a, B: b, Dip: dip, Time: now})
	d.Process(Levels{A: a, B: b, Dip: dip, Time: now.Add(50 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("debouncer should be baselined")
	}
	return d
}

func TestDebouncerBaselineEstablishment(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(50 * time.Millisecond)

	if sigs := d.Process(Levels{Time: now}); len(sigs) != 0 {
		t.Errorf("expected no signals during baseline, got %v", sigs)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	if sigs := d.Process(Levels{Time: now.Add(40 * time.Millisecond)}); len(sigs) != 0 {
		t.Errorf("expected no signals during baseline, got %v", sigs)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined before settle window")
	}

	if sigs := d.Process(Levels{Time: now.Add(50 * time.Millisecond)}); len(sigs) != 0 {
		t.Errorf("expected no signals at baseline with switch off, got %v", sigs)
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after settle window")
	}

	a, b, dip := d.CurrentLevels()
	if a != LevelLow || b != LevelLow || dip != LevelLow {
		t.Errorf("expected all LOW, got %s %s %s", a, b, dip)
	}
}

func TestDebouncerBaselineWithSwitchOn(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(50 * time.Millisecond)

	d.Process(Levels{Dip: true, Time: now})
	sigs := d.Process(Levels{Dip: true, Time: now.Add(50 * time.Millisecond)})
	if len(sigs) != 1 || sigs[0] != SignalDipOn {
		t.Fatalf("expected [DIP_ON] at baseline, got %v", sigs)
	}
}

func TestDebouncerHeldButtonAtBootIsSilent(t *testing.T) {
	d := setupBaselinedDebouncer(t, true, false, false)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// Still held: nothing
	if sigs := d.Process(Levels{A: true, Time: now}); len(sigs) != 0 {
		t.Errorf("expected no signals while held, got %v", sigs)
	}
	// Released: one A_RELEASED
	d.Process(Levels{A: false, Time: now.Add(10 * time.Millisecond)})
	sigs := d.Process(Levels{A: false, Time: now.Add(60 * time.Millisecond)})
	if len(sigs) != 1 || sigs[0] != SignalAReleased {
		t.Errorf("expected [A_RELEASED], got %v", sigs)
	}
}

func TestDebouncerBaselineResetOnChange(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(50 * time.Millisecond)

	d.Process(Levels{A: true, Time: now})
	d.Process(Levels{A: false, Time: now.Add(20 * time.Millisecond)})
	d.Process(Levels{A: false, Time: now.Add(50 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("A changed during baseline, should not be baselined yet")
	}

	d.Process(Levels{A: false, Time: now.Add(70 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Error("should be baselined after settle window from the change")
	}
}

func TestDebouncerPressAndRelease(t *testing.T) {
	d := setupBaselinedDebouncer(t, false, false, false)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	if sigs := d.Process(Levels{A: true, Time: now}); len(sigs) != 0 {
		t.Errorf("expected no signal before settle, got %v", sigs)
	}
	sigs := d.Process(Levels{A: true, Time: now.Add(50 * time.Millisecond)})
	if len(sigs) != 1 || sigs[0] != SignalAPressed {
		t.Fatalf("expected [A_PRESSED], got %v", sigs)
	}

	// Holding does not repeat
	for i := 0; i < 5; i++ {
		if sigs := d.Process(Levels{A: true, Time: now.Add(time.Duration(100+i*10) * time.Millisecond)}); len(sigs) != 0 {
			t.Errorf("iteration %d: expected no signals while held, got %v", i, sigs)
		}
	}

	d.Process(Levels{A: false, Time: now.Add(300 * time.Millisecond)})
	sigs = d.Process(Levels{A: false, Time: now.Add(350 * time.Millisecond)})
	if len(sigs) != 1 || sigs[0] != SignalAReleased {
		t.Fatalf("expected [A_RELEASED], got %v", sigs)
	}
}

func TestDebouncerBounceRejection(t *testing.T) {
	d := setupBaselinedDebouncer(t, false, false, false)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// Contact bounce: toggles faster than the settle window
	levels := []bool{true, false, true, false, true, false}
	for i, l := range levels {
		sigs := d.Process(Levels{B: l, Time: now.Add(time.Duration(i) * 10 * time.Millisecond)})
		if len(sigs) != 0 {
			t.Errorf("sample %d: expected no signals during bounce, got %v", i, sigs)
		}
	}
	// Settles LOW again: still nothing
	if sigs := d.Process(Levels{B: false, Time: now.Add(200 * time.Millisecond)}); len(sigs) != 0 {
		t.Errorf("expected no signals after bounce settles to baseline, got %v", sigs)
	}
}

func TestDebouncerSimultaneousOrdering(t *testing.T) {
	d := setupBaselinedDebouncer(t, false, false, false)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	d.Process(Levels{A: true, B: true, Dip: true, Time: now})
	sigs := d.Process(Levels{A: true, B: true, Dip: true, Time: now.Add(50 * time.Millisecond)})

	want := []Signal{SignalAPressed, SignalBPressed, SignalDipOn}
	if len(sigs) != len(want) {
		t.Fatalf("expected %v, got %v", want, sigs)
	}
	for i := range want {
		if sigs[i] != want[i] {
			t.Errorf("signal %d: expected %s, got %s", i, want[i], sigs[i])
		}
	}
}

func TestDebouncerSwitchOff(t *testing.T) {
	d := setupBaselinedDebouncer(t, false, false, true)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	d.Process(Levels{Dip: false, Time: now})
	sigs := d.Process(Levels{Dip: false, Time: now.Add(50 * time.Millisecond)})
	if len(sigs) != 1 || sigs[0] != SignalDipOff {
		t.Fatalf("expected [DIP_OFF], got %v", sigs)
	}
}
