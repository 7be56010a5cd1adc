// Package status provides a thread-safe status tracker for the gate controller.
// It is written by the control cycle and read by HTTP handlers, the live feed
// and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing cmd-level env parsing from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	StorePath   string
}

// Gate is the control cycle's view of the gate.
type Gate struct {
	State        logic.GateState
	Label        string
	Line1, Line2 string // display frame
	Remaining    time.Duration
	Amps         float64
	DriveOpen    bool
	DriveClose   bool
	Holding      bool
	Calibration  logic.Calibration
	RequireSetup bool

	// Debounced input levels.
	ButtonA, ButtonB, Dip logic.Level
	// LastObstruction is zero until the first trip.
	LastObstruction time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Gate          Gate
	StoreStatus   string
	Ready         bool // inputs baselined
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the gate view, input readiness and activity counts.
// Called from the control cycle on every tick.
func (t *Tracker) Update(g Gate, ready bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Gate = g
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetStoreStatus records how the calibration was loaded at boot.
func (t *Tracker) SetStoreStatus(s string) {
	t.mu.Lock()
	t.snap.StoreStatus = s
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
