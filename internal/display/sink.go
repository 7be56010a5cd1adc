package display

import (
	"fmt"
	"io"
	"log"

	"go.bug.st/serial"
)

// Serial LCD backpack commands.
var (
	cmdClear = []byte{0xFE, 0x01}
	cmdLine2 = []byte{0xFE, 0xC0}
)

// SerialLCD writes frames to a serial LCD backpack. Unchanged frames are
// not rewritten.
type SerialLCD struct {
	w    io.Writer
	last Frame
	sent bool
}

// OpenSerialLCD opens the display port.
func OpenSerialLCD(name string, baud int) (*SerialLCD, io.Closer, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, nil, fmt.Errorf("open display %s: %w", name, err)
	}
	return NewSerialLCD(port), port, nil
}

// NewSerialLCD creates an LCD sink writing to w.
func NewSerialLCD(w io.Writer) *SerialLCD {
	return &SerialLCD{w: w}
}

// Show writes the frame if it differs from the last one written.
func (l *SerialLCD) Show(f Frame) error {
	if l.sent && f == l.last {
		return nil
	}

	buf := make([]byte, 0, 2*Width+len(cmdClear)+len(cmdLine2))
	buf = append(buf, cmdClear...)
	buf = append(buf, f.Line1...)
	buf = append(buf, cmdLine2...)
	buf = append(buf, f.Line2...)

	if _, err := l.w.Write(buf); err != nil {
		l.sent = false
		return fmt.Errorf("write display: %w", err)
	}
	l.last = f
	l.sent = true
	return nil
}

// LogSink logs frames when they change. Used when no display is attached.
type LogSink struct {
	last Frame
}

// Show logs the frame label line on change.
func (s *LogSink) Show(f Frame) error {
	if f.Line1 == s.last.Line1 {
		s.last = f
		return nil
	}
	s.last = f
	log.Printf("display: [%s] [%s]", f.Line1, f.Line2)
	return nil
}

// FakeSink records every frame shown.
type FakeSink struct {
	Frames []Frame
	Err    error
}

// Show records f.
func (s *FakeSink) Show(f Frame) error {
	if s.Err != nil {
		return s.Err
	}
	s.Frames = append(s.Frames, f)
	return nil
}

// Last returns the most recent frame.
func (s *FakeSink) Last() Frame {
	if len(s.Frames) == 0 {
		return Frame{}
	}
	return s.Frames[len(s.Frames)-1]
}
