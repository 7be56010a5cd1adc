//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

const chipName = "gpiochip0"

// RealReader reads the inputs from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealReader requests the A, B and dip switch lines as inputs.
func NewRealReader(pinA, pinB, pinDip int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Pull-down so a floating input reads as released.
	lines, err := chip.RequestLines([]int{pinA, pinB, pinDip}, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request input pins %d,%d,%d: %w", pinA, pinB, pinDip, err)
	}

	return &RealReader{chip: chip, lines: lines}, nil
}

// Read returns the logical input levels. Raw 1 = pressed / on.
func (r *RealReader) Read() (Sample, error) {
	vals := make([]int, 3)
	if err := r.lines.Values(vals); err != nil {
		return Sample{}, fmt.Errorf("read input pins: %w", err)
	}
	return Sample{A: vals[0] == 1, B: vals[1] == 1, Dip: vals[2] == 1}, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var err error
	if r.lines != nil {
		err = multierr.Append(err, wrap("close input pins", r.lines.Close()))
	}
	if r.chip != nil {
		err = multierr.Append(err, wrap("close chip", r.chip.Close()))
	}
	return err
}

// Relay boards are active-low: raw 0 energizes the relay.
const (
	rawAsserted = 0
	rawIdle     = 1
)

// RealDriver drives the relay outputs.
type RealDriver struct {
	chip      *gpiocdev.Chip
	openLine  *gpiocdev.Line
	closeLine *gpiocdev.Line
}

// NewRealDriver requests both drive lines as outputs, initialised idle.
func NewRealDriver(pinOpen, pinClose int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	openLine, err := chip.RequestLine(pinOpen, gpiocdev.AsOutput(rawIdle))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request open pin %d: %w", pinOpen, err)
	}

	closeLine, err := chip.RequestLine(pinClose, gpiocdev.AsOutput(rawIdle))
	if err != nil {
		openLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request close pin %d: %w", pinClose, err)
	}

	return &RealDriver{chip: chip, openLine: openLine, closeLine: closeLine}, nil
}

func level(asserted bool) int {
	if asserted {
		return rawAsserted
	}
	return rawIdle
}

// SetOpen sets the open relay.
func (d *RealDriver) SetOpen(asserted bool) error {
	if err := d.openLine.SetValue(level(asserted)); err != nil {
		return fmt.Errorf("set open pin: %w", err)
	}
	return nil
}

// SetClose sets the close relay.
func (d *RealDriver) SetClose(asserted bool) error {
	if err := d.closeLine.SetValue(level(asserted)); err != nil {
		return fmt.Errorf("set close pin: %w", err)
	}
	return nil
}

// Close de-energizes both relays and releases GPIO resources.
// The lines are left as inputs with pull-up so the relay board stays idle
// through a reboot.
func (d *RealDriver) Close() error {
	var err error
	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{{"open", d.openLine}, {"close", d.closeLine}} {
		if l.line == nil {
			continue
		}
		err = multierr.Append(err, wrap("idle "+l.name+" pin", l.line.SetValue(rawIdle)))
		err = multierr.Append(err, wrap("reconfigure "+l.name+" pin", l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp)))
		err = multierr.Append(err, wrap("close "+l.name+" pin", l.line.Close()))
	}
	if d.chip != nil {
		err = multierr.Append(err, wrap("close chip", d.chip.Close()))
	}
	return err
}

func wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
