package display

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

func TestRenderStatus(t *testing.T) {
	f := Render(logic.Screen{
		Label:     logic.LabelOpening,
		Drive:     15 * time.Second,
		Remaining: 11200 * time.Millisecond,
		Amps:      2.34,
	})

	if f.Line1 != "OPENING         " {
		t.Errorf("line 1: got %q", f.Line1)
	}
	if f.Line2 != "D15 R12  2.3A   " {
		t.Errorf("line 2: got %q", f.Line2)
	}
}

func TestRenderPrompt(t *testing.T) {
	f := Render(logic.Screen{Prompt: [2]string{"PRESS A WHEN", "GATE FULLY OPEN"}})

	if f.Line1 != "PRESS A WHEN    " || f.Line2 != "GATE FULLY OPEN " {
		t.Errorf("got %q / %q", f.Line1, f.Line2)
	}
}

func TestRenderWidth(t *testing.T) {
	f := Render(logic.Screen{
		Label:     "A LABEL THAT IS FAR TOO LONG",
		Drive:     120 * time.Second,
		Remaining: 119 * time.Second,
		Amps:      12.5,
	})
	if len(f.Line1) != Width || len(f.Line2) != Width {
		t.Errorf("lines must be %d wide: %q / %q", Width, f.Line1, f.Line2)
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{1001 * time.Millisecond, 2},
	}
	for _, tt := range tests {
		if got := seconds(tt.d); got != tt.want {
			t.Errorf("seconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestSerialLCDWritesOnChange(t *testing.T) {
	var buf bytes.Buffer
	lcd := NewSerialLCD(&buf)

	f := Frame{Line1: fit("CLOSED"), Line2: fit("D15 R00  0.0A")}
	if err := lcd.Show(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := append([]byte{0xFE, 0x01}, f.Line1...)
	want = append(want, 0xFE, 0xC0)
	want = append(want, f.Line2...)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("bytes:\n got %x\nwant %x", buf.Bytes(), want)
	}

	buf.Reset()
	lcd.Show(f)
	if buf.Len() != 0 {
		t.Error("unchanged frame should not be rewritten")
	}

	f.Line2 = fit("D15 R00  0.1A")
	lcd.Show(f)
	if buf.Len() == 0 {
		t.Error("changed frame should be written")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port gone") }

func TestSerialLCDWriteError(t *testing.T) {
	lcd := NewSerialLCD(failingWriter{})
	if err := lcd.Show(Frame{Line1: "X"}); err == nil {
		t.Error("expected write error")
	}
}

func TestFakeSink(t *testing.T) {
	s := &FakeSink{}
	if s.Last() != (Frame{}) {
		t.Error("empty sink should return zero frame")
	}
	s.Show(Frame{Line1: "A"})
	s.Show(Frame{Line1: "B"})
	if s.Last().Line1 != "B" || len(s.Frames) != 2 {
		t.Errorf("unexpected frames: %+v", s.Frames)
	}
}
