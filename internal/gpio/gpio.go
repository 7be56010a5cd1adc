// Package gpio provides the remote-control inputs and the motor drive outputs
// with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Sample is a single reading of the digital inputs, in logical form.
type Sample struct {
	A   bool // true = pressed
	B   bool // true = pressed
	Dip bool // true = setup switch on
}

// Reader reads the remote-control buttons and the setup switch.
type Reader interface {
	// Read returns the logical input levels. Inputs are active-high.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Driver energizes the motor drive outputs.
// Callers must never leave both outputs asserted.
type Driver interface {
	SetOpen(asserted bool) error
	SetClose(asserted bool) error

	// Close returns both outputs to idle and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinA     = 17 // remote ButtonA
	PinB     = 27 // remote ButtonB
	PinDip   = 22 // setup dip switch
	PinOpen  = 23 // open drive relay
	PinClose = 24 // close drive relay
)
