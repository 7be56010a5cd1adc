// Package current reads the motor current from the sensor board.
//
// The board streams one reading per line over a serial link, in amps as a
// decimal number ("2.35\r\n"). The sampler keeps the most recent reading.
package current

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Sampler returns the latest motor current reading.
type Sampler interface {
	Amps() (float64, error)
	Close() error
}

// ErrNoReading is returned before the first reading arrives or when the last
// one is older than the staleness limit.
var ErrNoReading = errors.New("current: no recent reading")

// DefaultStaleAfter is how old a reading may be before Amps reports an error.
const DefaultStaleAfter = 2 * time.Second

// SerialSampler reads current lines from a serial port in a background goroutine.
type SerialSampler struct {
	port       io.ReadCloser
	staleAfter time.Duration
	now        func() time.Time

	mu     sync.Mutex
	amps   float64
	at     time.Time
	seen   bool
	badCnt int

	done chan struct{}
}

// OpenSerial opens the sensor port and starts reading.
func OpenSerial(name string, baud int) (*SerialSampler, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open current sensor %s: %w", name, err)
	}
	return NewSerialSampler(port, DefaultStaleAfter, time.Now), nil
}

// NewSerialSampler starts reading lines from r.
func NewSerialSampler(r io.ReadCloser, staleAfter time.Duration, now func() time.Time) *SerialSampler {
	s := &SerialSampler{
		port:       r,
		staleAfter: staleAfter,
		now:        now,
		done:       make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *SerialSampler) readLoop() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		amps, err := ParseLine(scanner.Text())
		if err != nil {
			s.mu.Lock()
			s.badCnt++
			n := s.badCnt
			s.mu.Unlock()
			// Partial lines are normal right after the port opens.
			if n > 1 {
				log.Printf("current: %v", err)
			}
			continue
		}

		s.mu.Lock()
		s.amps = amps
		s.at = s.now()
		s.seen = true
		s.mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		log.Printf("current: read stopped: %v", err)
	}
}

// Amps returns the latest reading.
func (s *SerialSampler) Amps() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen || s.now().Sub(s.at) > s.staleAfter {
		return 0, ErrNoReading
	}
	return s.amps, nil
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSampler) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}

// ParseLine parses one sensor line. Negative readings are clamped to zero,
// since the sensor is unidirectional.
func ParseLine(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errors.New("empty line")
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", line, err)
	}
	if v < 0 {
		v = 0
	}
	return v, nil
}
