package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

// Slot names.
const (
	SlotSetupComplete  = "setup_complete"
	SlotDriveDuration  = "drive_duration"
	SlotAutocloseDelay = "autoclose_delay"
)

// Status records how the stored calibration came about.
type Status byte

const (
	StatusNotStarted Status = 0
	StatusDefaulted  Status = 1
	StatusCompleted  Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NOT_STARTED"
	case StatusDefaulted:
		return "DEFAULTED"
	case StatusCompleted:
		return "COMPLETED"
	}
	return fmt.Sprintf("Status(%d)", byte(s))
}

// encodeDuration stores seconds as a little-endian float64.
func encodeDuration(d time.Duration) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(d.Seconds()))
	return b
}

func decodeDuration(b []byte) (time.Duration, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: duration is %d bytes", ErrCorrupt, len(b))
	}
	secs := math.Float64frombits(binary.LittleEndian.Uint64(b))
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, fmt.Errorf("%w: duration %v", ErrCorrupt, secs)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

func decodeStatus(b []byte) (Status, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: status is %d bytes", ErrCorrupt, len(b))
	}
	s := Status(b[0])
	if s > StatusCompleted {
		return 0, fmt.Errorf("%w: unknown status %d", ErrCorrupt, b[0])
	}
	return s, nil
}

// LoadCalibration reads the calibration from s. A store that was never
// written is initialised with defaults and reported as StatusDefaulted.
// Corrupt or unreadable contents return an error along with defaults; the
// caller must then require a fresh calibration.
func LoadCalibration(s Store, defaults logic.Calibration) (logic.Calibration, Status, error) {
	cal := defaults
	cal.SetupComplete = false

	raw, err := s.Get(SlotSetupComplete)
	if errors.Is(err, ErrNotFound) {
		if err := writeDefaults(s, defaults); err != nil {
			return cal, StatusDefaulted, err
		}
		return cal, StatusDefaulted, nil
	}
	if err != nil {
		return cal, StatusNotStarted, fmt.Errorf("read %s: %w", SlotSetupComplete, err)
	}
	status, err := decodeStatus(raw)
	if err != nil {
		return cal, StatusNotStarted, err
	}

	drive, err := readDuration(s, SlotDriveDuration)
	if err != nil {
		return cal, status, err
	}
	autoclose, err := readDuration(s, SlotAutocloseDelay)
	if err != nil {
		return cal, status, err
	}
	if drive == 0 {
		return cal, status, fmt.Errorf("%w: zero drive duration", ErrCorrupt)
	}

	cal.DriveDuration = drive
	cal.AutocloseDelay = autoclose
	cal.SetupComplete = status == StatusCompleted
	return cal, status, nil
}

func readDuration(s Store, slot string) (time.Duration, error) {
	raw, err := s.Get(slot)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", slot, err)
	}
	d, err := decodeDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", slot, err)
	}
	return d, nil
}

func writeDefaults(s Store, defaults logic.Calibration) error {
	return write(s, defaults.DriveDuration, defaults.AutocloseDelay, StatusDefaulted)
}

func write(s Store, drive, autoclose time.Duration, status Status) error {
	// Durations first, so an interrupted write never marks partial values complete.
	if err := s.Put(SlotDriveDuration, encodeDuration(drive)); err != nil {
		return fmt.Errorf("write %s: %w", SlotDriveDuration, err)
	}
	if err := s.Put(SlotAutocloseDelay, encodeDuration(autoclose)); err != nil {
		return fmt.Errorf("write %s: %w", SlotAutocloseDelay, err)
	}
	if err := s.Put(SlotSetupComplete, []byte{byte(status)}); err != nil {
		return fmt.Errorf("write %s: %w", SlotSetupComplete, err)
	}
	return nil
}

// SaveCalibration writes a committed calibration.
func SaveCalibration(s Store, cal logic.Calibration) error {
	return write(s, cal.DriveDuration, cal.AutocloseDelay, StatusCompleted)
}

// Persister adapts a Store to logic.Persister.
type Persister struct {
	Store Store
}

// SaveCalibration implements logic.Persister.
func (p Persister) SaveCalibration(cal logic.Calibration) error {
	return SaveCalibration(p.Store, cal)
}
