package current

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    float64
		wantErr bool
	}{
		{"2.35", 2.35, false},
		{"2.35\r", 2.35, false},
		{"  0 ", 0, false},
		{"-0.02", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLine(tt.line)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLine(%q): expected error", tt.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLine(%q): unexpected error: %v", tt.line, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// waitFor polls until the sampler returns want or the deadline passes.
func waitFor(t *testing.T, s *SerialSampler, want float64) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, err := s.Amps(); err == nil && v == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	v, err := s.Amps()
	t.Fatalf("timed out waiting for %v, last (%v, %v)", want, v, err)
}

func TestSerialSamplerKeepsLatest(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r, w := io.Pipe()
	s := NewSerialSampler(r, time.Second, clock.Now)

	if _, err := s.Amps(); !errors.Is(err, ErrNoReading) {
		t.Errorf("expected ErrNoReading before first line, got %v", err)
	}

	io.WriteString(w, "1.50\r\n")
	waitFor(t, s, 1.5)

	io.WriteString(w, "garbage\r\n3.25\r\n")
	waitFor(t, s, 3.25)

	w.Close()
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestSerialSamplerStale(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r, w := io.Pipe()
	s := NewSerialSampler(r, time.Second, clock.Now)
	defer s.Close()
	defer w.Close()

	io.WriteString(w, "0.8\n")
	waitFor(t, s, 0.8)

	clock.Advance(1500 * time.Millisecond)
	if _, err := s.Amps(); !errors.Is(err, ErrNoReading) {
		t.Errorf("expected stale reading error, got %v", err)
	}
}

func TestFakeSampler(t *testing.T) {
	f := &FakeSampler{Value: 2.0}
	if v, err := f.Amps(); err != nil || v != 2.0 {
		t.Errorf("got (%v, %v)", v, err)
	}
	f.Err = errors.New("sensor unplugged")
	if _, err := f.Amps(); err == nil {
		t.Error("expected error")
	}
}
