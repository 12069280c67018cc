package models

import "time"

// Journal event types.
const (
	EventToggle               = "TOGGLE"
	EventToggleFailed         = "TOGGLE_FAILED"
	EventScheduleAdd          = "SCHEDULE_ADD"
	EventScheduleAddFailed    = "SCHEDULE_ADD_FAILED"
	EventScheduleDelete       = "SCHEDULE_DELETE"
	EventScheduleDeleteFailed = "SCHEDULE_DELETE_FAILED"
	EventDeviceOffline        = "DEVICE_OFFLINE"
	EventDeviceOnline         = "DEVICE_ONLINE"
)

// CommandEvent is a single journal entry.
type CommandEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // TOGGLE | TOGGLE_FAILED | SCHEDULE_ADD | ...
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// KnownEventType reports whether typ is one of the journal event types.
func KnownEventType(typ string) bool {
	switch typ {
	case EventToggle, EventToggleFailed,
		EventScheduleAdd, EventScheduleAddFailed,
		EventScheduleDelete, EventScheduleDeleteFailed,
		EventDeviceOffline, EventDeviceOnline:
		return true
	}
	return false
}
