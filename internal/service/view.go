package service

import "light_control/internal/models"

// View receives state changes from the core. Calls arrive serialized on the
// Loop, so implementations must return quickly and must not call back into
// the Service synchronously.
type View interface {
	OnRelaySnapshotChanged(models.RelaySnapshot)
	OnScheduleListChanged([]models.ScheduleEntry)
	OnStatusMessage(string)
	OnTimeUpdated(string)
}

// Views fans every notification out to each member in order.
type Views []View

func (vs Views) OnRelaySnapshotChanged(s models.RelaySnapshot) {
	for _, v := range vs {
		v.OnRelaySnapshotChanged(s)
	}
}

func (vs Views) OnScheduleListChanged(e []models.ScheduleEntry) {
	for _, v := range vs {
		v.OnScheduleListChanged(e)
	}
}

func (vs Views) OnStatusMessage(msg string) {
	for _, v := range vs {
		v.OnStatusMessage(msg)
	}
}

func (vs Views) OnTimeUpdated(t string) {
	for _, v := range vs {
		v.OnTimeUpdated(t)
	}
}

// NopView discards notifications.
type NopView struct{}

func (NopView) OnRelaySnapshotChanged(models.RelaySnapshot)  {}
func (NopView) OnScheduleListChanged([]models.ScheduleEntry) {}
func (NopView) OnStatusMessage(string)                       {}
func (NopView) OnTimeUpdated(string)                         {}
