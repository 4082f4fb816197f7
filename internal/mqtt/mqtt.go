// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/circadian-clock/internal/circadian"
)

// DefaultTopicPrefix is the topic prefix used when none is configured.
const DefaultTopicPrefix = "home/circadian"

// EventsTopic returns the topic for clock events under prefix.
func EventsTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/events"
}

// SystemTopic returns the topic for system lifecycle events under prefix.
func SystemTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/system"
}

// EventType identifies a clock event.
type EventType string

const (
	EventBootstrap EventType = "BOOTSTRAP"
	EventDawn      EventType = "DAWN"
	EventDusk      EventType = "DUSK"
	EventTrigger   EventType = "TRIGGER"
)

// ClockEvent is a clock occurrence to be published.
type ClockEvent struct {
	Timestamp time.Time
	Type      EventType
	// Name is the schedule entry name for TRIGGER events.
	Name string
	// DayTime is the clock's time of day when the event happened.
	DayTime   int
	InSync    bool
	InSyncNow bool
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a clock event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event ClockEvent) error

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
	Clock ClockPayload `json:"clock"`
}

// ClockPayload contains the clock event details.
type ClockPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Name      string `json:"name,omitempty"`
	Time      string `json:"time"`
	InSync    bool   `json:"in_sync"`
	InSyncNow bool   `json:"in_sync_now"`
}

// FormatPayload creates the JSON payload for a clock event.
func FormatPayload(event ClockEvent) ([]byte, error) {
	payload := Payload{
		Clock: ClockPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Name:      event.Name,
			Time:      circadian.FormatDayTime(event.DayTime),
			InSync:    event.InSync,
			InSyncNow: event.InSyncNow,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	return data
}
