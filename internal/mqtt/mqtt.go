// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

// Topic is the MQTT topic for gate events.
const Topic = "gate/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "gate/controller/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a gate event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Gate GatePayload `json:"gate"`
}

// GatePayload contains the gate event details.
type GatePayload struct {
	Timestamp   string              `json:"timestamp"`
	Event       string              `json:"event"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Amps        float64             `json:"amps"`
	RemainingMs int64               `json:"remaining_ms"`
	Calibration *CalibrationPayload `json:"calibration,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// CalibrationPayload carries a committed calibration.
type CalibrationPayload struct {
	DriveMs     int64 `json:"drive_ms"`
	AutocloseMs int64 `json:"autoclose_ms"`
}

// FormatPayload creates the JSON payload for a gate event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := GatePayload{
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
		Event:       string(event.Type),
		From:        string(event.From),
		To:          string(event.To),
		Amps:        math.Round(event.Amps*100) / 100,
		RemainingMs: event.Remaining.Milliseconds(),
		Error:       event.Err,
	}
	if event.Calibration != nil {
		p.Calibration = &CalibrationPayload{
			DriveMs:     event.Calibration.DriveDuration.Milliseconds(),
			AutocloseMs: event.Calibration.AutocloseDelay.Milliseconds(),
		}
	}
	return json.Marshal(Payload{Gate: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
