package models

import "fmt"

// ScheduleEntry is a device-side on/off schedule for one relay.
type ScheduleEntry struct {
	ID        int     `json:"id"`
	Relay     RelayID `json:"relay"`
	OnHour    int     `json:"onHour"`
	OnMinute  int     `json:"onMinute"`
	OffHour   int     `json:"offHour"`
	OffMinute int     `json:"offMinute"`
	Enabled   bool    `json:"enabled"`
}

// OnTime formats the switch-on time as HH:MM.
func (e ScheduleEntry) OnTime() string {
	return fmt.Sprintf("%02d:%02d", e.OnHour, e.OnMinute)
}

// OffTime formats the switch-off time as HH:MM.
func (e ScheduleEntry) OffTime() string {
	return fmt.Sprintf("%02d:%02d", e.OffHour, e.OffMinute)
}

// Status is the human label for Enabled.
func (e ScheduleEntry) Status() string {
	if e.Enabled {
		return "Active"
	}
	return "Inactive"
}

// ScheduleDraft is user input for a new schedule, sent to the device as-is.
type ScheduleDraft struct {
	Relay   RelayID `json:"relay"`
	OnTime  string  `json:"onTime"`  // "HH:MM", format checked by the device
	OffTime string  `json:"offTime"` // "HH:MM", format checked by the device
}

// ValidationError reports a draft rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the fields the client is responsible for: a real relay and
// non-empty times.
func (d ScheduleDraft) Validate() error {
	if !d.Relay.Valid() {
		return &ValidationError{Field: "relay", Reason: fmt.Sprintf("must be 1..%d", RelayCount)}
	}
	if d.OnTime == "" {
		return &ValidationError{Field: "onTime", Reason: "required"}
	}
	if d.OffTime == "" {
		return &ValidationError{Field: "offTime", Reason: "required"}
	}
	return nil
}
