package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

func TestTopics(t *testing.T) {
	if Topic != "gate/controller/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "gate/controller/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC),
		Type:      logic.EventStateChange,
		From:      logic.StateClosed,
		To:        logic.StateOpening,
		Amps:      0.4567,
		Remaining: 15 * time.Second,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"gate":{"timestamp":"2026-03-14T07:30:00Z","event":"STATE_CHANGE","from":"CLOSED","to":"OPENING","amps":0.46,"remaining_ms":15000}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadCalibrated(t *testing.T) {
	cal := logic.Calibration{DriveDuration: 12500 * time.Millisecond, AutocloseDelay: 40 * time.Second}
	event := logic.Event{
		Timestamp:   time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC),
		Type:        logic.EventCalibrated,
		From:        logic.StateSetupConfirm,
		To:          logic.StateClosed,
		Calibration: &cal,
		Err:         "write drive_duration: disk full",
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Gate.Calibration == nil {
		t.Fatal("expected calibration")
	}
	if parsed.Gate.Calibration.DriveMs != 12500 || parsed.Gate.Calibration.AutocloseMs != 40000 {
		t.Errorf("calibration: %+v", parsed.Gate.Calibration)
	}
	if parsed.Gate.Error != "write drive_duration: disk full" {
		t.Errorf("error: %q", parsed.Gate.Error)
	}
}

func TestFormatPayloadOmitsOptionalFields(t *testing.T) {
	payload, _ := FormatPayload(logic.Event{Type: logic.EventObstruction})

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, k := range []string{"calibration", "error"} {
		if _, ok := parsed["gate"][k]; ok {
			t.Errorf("%s should be omitted", k)
		}
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("NZDT", 13*60*60)
	event := logic.Event{
		Timestamp: time.Date(2026, 1, 1, 13, 0, 0, 0, loc),
		Type:      logic.EventStateChange,
	}

	payload, _ := FormatPayload(event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Gate.Timestamp != "2026-01-01T00:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Gate.Timestamp)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name  string
		event SystemEvent
		want  string
	}{
		{
			"will",
			SystemEvent{Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC), Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"},
			`{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`,
		},
		{
			"reconnected",
			SystemEvent{Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC), Event: "RECONNECTED"},
			`{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, tt.want)
			}
		})
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	f.Publish(logic.Event{Type: logic.EventStateChange, From: logic.StateClosed, To: logic.StateOpening})
	f.Publish(logic.Event{Type: logic.EventObstruction, From: logic.StateOpening, To: logic.StateClosing})
	f.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true})

	if len(f.Events) != 2 || len(f.Payloads) != 2 {
		t.Fatalf("expected 2 events, got %d", len(f.Events))
	}
	if got := f.EventsOfType(logic.EventObstruction); len(got) != 1 || got[0].To != logic.StateClosing {
		t.Errorf("EventsOfType: %+v", got)
	}
	if len(f.SystemEvents) != 1 || !f.SystemEvents[0].Retained {
		t.Errorf("system events: %+v", f.SystemEvents)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.Publish(logic.Event{}); err == nil {
		t.Error("expected publish error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected system publish error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()
	f.Close()
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}
