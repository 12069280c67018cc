// Package mqtt mirrors view notifications to an MQTT broker, with a publisher
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"light_control/internal/models"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "lightctl"

// Topic suffixes under the configured prefix.
const (
	TopicRelays    = "relays"
	TopicSchedules = "schedules"
	TopicStatus    = "status"
)

// Publisher publishes raw payloads to MQTT.
type Publisher interface {
	// Publish sends payload to topic. Returns error if publishing fails
	// (should not crash the process).
	Publish(topic string, retained bool, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// Topic joins prefix and suffix with a single slash.
func Topic(prefix, suffix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + suffix
}

// RelayPayload is the retained message on <prefix>/relays.
type RelayPayload struct {
	Timestamp string              `json:"timestamp"`
	Relays    []models.RelayState `json:"relays"`
}

// SchedulePayload is the retained message on <prefix>/schedules.
type SchedulePayload struct {
	Timestamp string                 `json:"timestamp"`
	Schedules []models.ScheduleEntry `json:"schedules"`
}

// StatusPayload is the message on <prefix>/status.
type StatusPayload struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatRelays creates the JSON payload for a relay snapshot.
func FormatRelays(at time.Time, s models.RelaySnapshot) ([]byte, error) {
	return json.Marshal(RelayPayload{Timestamp: stamp(at), Relays: s[:]})
}

// FormatSchedules creates the JSON payload for a schedule list.
func FormatSchedules(at time.Time, entries []models.ScheduleEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	return json.Marshal(SchedulePayload{Timestamp: stamp(at), Schedules: entries})
}

// FormatStatus creates the JSON payload for a status message.
func FormatStatus(at time.Time, msg string) ([]byte, error) {
	return json.Marshal(StatusPayload{Timestamp: stamp(at), Message: msg})
}
