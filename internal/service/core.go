package service

import (
	"context"
	"time"

	"light_control/internal/logger"
	"light_control/internal/models"
	"light_control/internal/repository"
	"light_control/internal/store"

	"github.com/google/uuid"
)

// DeviceAPI is the board contract the core depends on. *device.API satisfies it.
type DeviceAPI interface {
	Time(ctx context.Context) (string, error)
	RelayStatus(ctx context.Context) (map[models.RelayID]int, error)
	Toggle(ctx context.Context, id models.RelayID) error
	Schedules(ctx context.Context) ([]models.ScheduleEntry, error)
	AddSchedule(ctx context.Context, d models.ScheduleDraft) error
	DeleteSchedule(ctx context.Context, id int) error
}

// core is the state shared by the Dispatcher and the Poller. Fields marked
// "loop" are only touched inside Loop.Post.
type core struct {
	api       DeviceAPI
	loop      *Loop
	relays    *store.RelayStore
	schedules *store.ScheduleStore
	view      View
	journal   repository.EventRepo // optional
	log       *logger.Logger

	linkDown bool // loop
}

// liveFunc reports whether a completed fetch may still touch state. nil means always.
type liveFunc func() bool

func (l liveFunc) ok() bool {
	return l == nil || l()
}

// say surfaces a status message. Call inside the loop.
func (c *core) say(msg string) {
	c.view.OnStatusMessage(msg)
}

// refreshStatus fetches relay status and applies it. On failure the store is
// left untouched and a message is surfaced.
func (c *core) refreshStatus(ctx context.Context, live liveFunc) error {
	status, err := c.api.RelayStatus(ctx)

	transition := ""
	c.loop.Post(func() {
		if !live.ok() {
			return
		}
		if err != nil {
			c.say(statusFailure.message(err))
			if isNetworkError(err) && !c.linkDown {
				c.linkDown = true
				transition = models.EventDeviceOffline
			}
			return
		}
		c.relays.ApplyStatus(status)
		if c.linkDown {
			c.linkDown = false
			transition = models.EventDeviceOnline
			c.say(msgStatusUpdated)
		}
	})

	if err != nil {
		c.log.Warnw("relay_status_failed", "err", err)
	}
	switch transition {
	case models.EventDeviceOffline:
		c.record(ctx, transition, "Board unreachable", map[string]any{"error": err.Error()})
	case models.EventDeviceOnline:
		c.record(ctx, transition, "Board reachable again", nil)
	}
	return err
}

// refreshTime fetches the board clock. Failures are logged only.
func (c *core) refreshTime(ctx context.Context, live liveFunc) error {
	text, err := c.api.Time(ctx)
	if err != nil {
		c.log.Warnw("time_fetch_failed", "err", err)
		return err
	}
	c.loop.Post(func() {
		if live.ok() {
			c.view.OnTimeUpdated(text)
		}
	})
	return nil
}

// fetchSchedules replaces the schedule list with the board's.
func (c *core) fetchSchedules(ctx context.Context, live liveFunc) error {
	entries, err := c.api.Schedules(ctx)
	c.loop.Post(func() {
		if !live.ok() {
			return
		}
		if err != nil {
			c.say(scheduleFetchFailure.message(err))
			return
		}
		c.schedules.ReplaceAll(entries)
	})
	if err != nil {
		c.log.Warnw("schedules_fetch_failed", "err", err)
	}
	return err
}

// record appends a journal entry. Journal failures are logged, never returned.
func (c *core) record(ctx context.Context, typ, desc string, meta map[string]any) {
	if c.journal == nil {
		return
	}
	ev := models.CommandEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
	}
	if len(meta) > 0 {
		ev.Metadata = meta
	}
	if err := c.journal.Append(context.WithoutCancel(ctx), ev); err != nil {
		c.log.Warnw("journal_append_failed", "err", err, "type", typ)
	}
}
