package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Gate          GateJSON     `json:"gate"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// GateJSON is the JSON representation of the gate.
type GateJSON struct {
	State        string          `json:"state"`
	Label        string          `json:"label"`
	Display      [2]string       `json:"display"`
	RemainingMs  int64           `json:"remaining_ms"`
	Amps         float64         `json:"amps"`
	Drive        string          `json:"drive"`
	Holding      bool            `json:"holding"`
	RequireSetup bool            `json:"require_setup"`
	Calibration  CalibrationJSON `json:"calibration"`
	Inputs       InputsJSON      `json:"inputs"`

	LastObstruction string `json:"last_obstruction,omitempty"`
}

// InputsJSON is the debounced level of each input, or "" before baseline.
type InputsJSON struct {
	A   string `json:"a"`
	B   string `json:"b"`
	Dip string `json:"dip"`
}

// CalibrationJSON is the JSON representation of the calibration in use.
type CalibrationJSON struct {
	DriveMs       int64   `json:"drive_ms"`
	AutocloseMs   int64   `json:"autoclose_ms"`
	CurrentLimit  float64 `json:"current_limit"`
	LockoutMs     int64   `json:"lockout_ms"`
	SetupComplete bool    `json:"setup_complete"`
	Store         string  `json:"store,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Opens        int `json:"opens"`
	Closes       int `json:"closes"`
	Autocloses   int `json:"autocloses"`
	Obstructions int `json:"obstructions"`
	Calibrations int `json:"calibrations"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	StorePath   string `json:"store_path,omitempty"`
}

// DriveName describes the asserted output.
func DriveName(g Gate) string {
	switch {
	case g.DriveOpen:
		return "OPEN"
	case g.DriveClose:
		return "CLOSE"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Gate.State)
	if state == "" {
		state = "UNKNOWN"
	}
	cal := snap.Gate.Calibration

	inner := StatusInner{
		Gate: GateJSON{
			State:        state,
			Label:        snap.Gate.Label,
			Display:      [2]string{snap.Gate.Line1, snap.Gate.Line2},
			RemainingMs:  snap.Gate.Remaining.Milliseconds(),
			Amps:         snap.Gate.Amps,
			Drive:        DriveName(snap.Gate),
			Holding:      snap.Gate.Holding,
			RequireSetup: snap.Gate.RequireSetup,
			Calibration: CalibrationJSON{
				DriveMs:       cal.DriveDuration.Milliseconds(),
				AutocloseMs:   cal.AutocloseDelay.Milliseconds(),
				CurrentLimit:  cal.CurrentLimit,
				LockoutMs:     cal.ObstructionLockout.Milliseconds(),
				SetupComplete: cal.SetupComplete,
				Store:         snap.StoreStatus,
			},
			Inputs: InputsJSON{
				A:   string(snap.Gate.ButtonA),
				B:   string(snap.Gate.ButtonB),
				Dip: string(snap.Gate.Dip),
			},
		},
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Opens:        snap.Counts.Opens,
			Closes:       snap.Counts.Closes,
			Autocloses:   snap.Counts.Autocloses,
			Obstructions: snap.Counts.Obstructions,
			Calibrations: snap.Counts.Calibrations,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			StorePath:   snap.Config.StorePath,
		},
	}

	if !snap.Gate.LastObstruction.IsZero() {
		inner.Gate.LastObstruction = snap.Gate.LastObstruction.UTC().Format(time.RFC3339)
	}

	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatCompact returns the status as a single line, for the live feed.
func FormatCompact(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap)})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
