package monitor

import (
	"encoding/json"
	"time"
)

// DefaultTopic is the MQTT topic trace events are published on.
const DefaultTopic = "picmcal/trace/events"

// Publisher forwards trace events.
type Publisher interface {
	// Publish sends one event. Failures are reported, not fatal.
	Publish(evt Event) error

	// Close disconnects.
	Close() error
}

// Payload is the JSON body of a published event.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Device    string `json:"device,omitempty"`
	Event     Event  `json:"event"`
}

// FormatPayload creates the JSON payload for evt.
func FormatPayload(device string, at time.Time, evt Event) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Device:    device,
		Event:     evt,
	})
}
