package service

import (
	"context"
	"errors"
	"fmt"

	"light_control/internal/models"
)

var (
	// ErrTogglePending is returned when a toggle for the relay is already in flight.
	ErrTogglePending = errors.New("toggle already in flight")
	// ErrUnknownRelay is returned for ids outside 1..RelayCount.
	ErrUnknownRelay = errors.New("unknown relay")
	// ErrClosed is returned once the service has been torn down.
	ErrClosed = errors.New("service closed")
)

// Dispatcher turns user intents into board commands. The exported
// context-taking methods block until the command completes; the intent
// methods (ToggleRelay, SubmitSchedule, RemoveSchedule, Refresh) return at
// once and finish on a background goroutine.
type Dispatcher struct {
	*core

	bg context.Context
}

func newDispatcher(c *core) *Dispatcher {
	return &Dispatcher{core: c, bg: context.Background()}
}

// Toggle flips relay id and waits for the board's answer.
func (d *Dispatcher) Toggle(ctx context.Context, id models.RelayID) error {
	if err := d.beginToggle(id); err != nil {
		return err
	}
	return d.sendToggle(ctx, id)
}

// ToggleRelay starts a toggle for id. It returns false when the intent is
// dropped because a toggle for id is still in flight or the service is closed.
func (d *Dispatcher) ToggleRelay(id models.RelayID) bool {
	if err := d.beginToggle(id); err != nil {
		d.log.Debugw("toggle_dropped", "relay", int(id), "reason", err)
		return false
	}
	return d.spawn(func(ctx context.Context) {
		_ = d.sendToggle(ctx, id)
	})
}

func (d *Dispatcher) beginToggle(id models.RelayID) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownRelay, id)
	}
	started := false
	if !d.loop.Post(func() { started = d.relays.BeginToggle(id) }) {
		return ErrClosed
	}
	if !started {
		return ErrTogglePending
	}
	return nil
}

// sendToggle issues the POST and completes the pending toggle. The board does
// not report the new state, so on success the store keeps its value until the
// next poll. On failure a status refresh reconciles local state.
func (d *Dispatcher) sendToggle(ctx context.Context, id models.RelayID) error {
	err := d.api.Toggle(ctx, id)

	applied := d.loop.Post(func() {
		d.relays.CompleteToggle(id, err == nil, nil)
		if err == nil {
			d.say(toggledMessage(id))
		} else {
			d.say(toggleFailure.message(err))
		}
	})

	if err == nil {
		d.log.Infow("relay_toggled", "relay", int(id))
		d.record(ctx, models.EventToggle, toggledMessage(id), map[string]any{"relay": int(id)})
		return nil
	}

	d.log.Errorw("toggle_failed", "relay", int(id), "err", err)
	d.record(ctx, models.EventToggleFailed, fmt.Sprintf("Relay %d toggle failed", id),
		map[string]any{"relay": int(id), "error": err.Error()})
	if applied {
		_ = d.refreshStatus(ctx, nil)
	}
	return err
}

// AddSchedule validates draft, submits it and re-fetches the list.
func (d *Dispatcher) AddSchedule(ctx context.Context, draft models.ScheduleDraft) error {
	if err := d.validateDraft(draft); err != nil {
		return err
	}
	return d.sendSchedule(ctx, draft)
}

// SubmitSchedule validates draft synchronously and, if valid, submits it in
// the background. A validation error is returned and surfaced to the view.
func (d *Dispatcher) SubmitSchedule(draft models.ScheduleDraft) error {
	if err := d.validateDraft(draft); err != nil {
		return err
	}
	if !d.spawn(func(ctx context.Context) {
		_ = d.sendSchedule(ctx, draft)
	}) {
		return ErrClosed
	}
	return nil
}

func (d *Dispatcher) validateDraft(draft models.ScheduleDraft) error {
	err := draft.Validate()
	if err != nil {
		d.loop.Post(func() { d.say(validationMessage(err)) })
	}
	return err
}

func (d *Dispatcher) sendSchedule(ctx context.Context, draft models.ScheduleDraft) error {
	meta := map[string]any{"relay": int(draft.Relay), "on_time": draft.OnTime, "off_time": draft.OffTime}

	if err := d.api.AddSchedule(ctx, draft); err != nil {
		d.loop.Post(func() { d.say(scheduleAddFailure.message(err)) })
		d.log.Errorw("schedule_add_failed", "relay", int(draft.Relay), "err", err)
		meta["error"] = err.Error()
		d.record(ctx, models.EventScheduleAddFailed, "Schedule add failed", meta)
		return err
	}

	if !d.loop.Post(func() { d.say(msgScheduleAdded) }) {
		return nil
	}
	d.record(ctx, models.EventScheduleAdd,
		fmt.Sprintf("Relay %d on %s off %s", draft.Relay, draft.OnTime, draft.OffTime), meta)
	return d.fetchSchedules(ctx, nil)
}

// DeleteSchedule removes schedule id on the board and re-fetches the list.
func (d *Dispatcher) DeleteSchedule(ctx context.Context, id int) error {
	meta := map[string]any{"schedule_id": id}

	if err := d.api.DeleteSchedule(ctx, id); err != nil {
		d.loop.Post(func() { d.say(scheduleDeleteFailure.message(err)) })
		d.log.Errorw("schedule_delete_failed", "schedule_id", id, "err", err)
		meta["error"] = err.Error()
		d.record(ctx, models.EventScheduleDeleteFailed, "Schedule delete failed", meta)
		return err
	}

	if !d.loop.Post(func() { d.say(msgScheduleDeleted) }) {
		return nil
	}
	d.record(ctx, models.EventScheduleDelete, fmt.Sprintf("Schedule %d deleted", id), meta)
	return d.fetchSchedules(ctx, nil)
}

// RemoveSchedule deletes schedule id in the background.
func (d *Dispatcher) RemoveSchedule(id int) {
	d.spawn(func(ctx context.Context) {
		_ = d.DeleteSchedule(ctx, id)
	})
}

// FetchSchedules re-reads the schedule list.
func (d *Dispatcher) FetchSchedules(ctx context.Context) error {
	return d.fetchSchedules(ctx, nil)
}

// RefreshStatus re-reads relay status outside the poll cadence.
func (d *Dispatcher) RefreshStatus(ctx context.Context) error {
	return d.refreshStatus(ctx, nil)
}

// RefreshTime re-reads the board clock.
func (d *Dispatcher) RefreshTime(ctx context.Context) error {
	return d.refreshTime(ctx, nil)
}

// RefreshAll re-reads status, clock and schedules.
func (d *Dispatcher) RefreshAll(ctx context.Context) error {
	return errors.Join(
		d.refreshStatus(ctx, nil),
		d.refreshTime(ctx, nil),
		d.fetchSchedules(ctx, nil),
	)
}

// Refresh runs RefreshAll in the background.
func (d *Dispatcher) Refresh() {
	d.spawn(func(ctx context.Context) {
		_ = d.RefreshAll(ctx)
	})
}

// RelaySnapshot returns the current relay states.
func (d *Dispatcher) RelaySnapshot() models.RelaySnapshot {
	return d.relays.Snapshot()
}

// ScheduleSnapshot returns the current schedule list.
func (d *Dispatcher) ScheduleSnapshot() []models.ScheduleEntry {
	return d.schedules.Snapshot()
}

// Wait blocks until every background command has finished.
func (d *Dispatcher) Wait() {
	d.loop.Wait()
}

// spawn runs fn in the background unless the service is closed.
func (d *Dispatcher) spawn(fn func(ctx context.Context)) bool {
	return d.loop.Go(func() { fn(d.bg) })
}
