package service

import (
	"context"
	"sync"
	"time"

	"light_control/internal/logger"
	"light_control/internal/models"
	"light_control/internal/repository"
	"light_control/internal/store"
)

// Relays exposes relay intents and the current relay snapshot.
type Relays interface {
	ToggleRelay(id models.RelayID) bool
	RelaySnapshot() models.RelaySnapshot
}

// Schedules exposes schedule intents and the current schedule list.
type Schedules interface {
	SubmitSchedule(d models.ScheduleDraft) error
	RemoveSchedule(id int)
	ScheduleSnapshot() []models.ScheduleEntry
}

// Refresher re-reads everything from the board in the background.
type Refresher interface {
	Refresh()
}

// EventLog exposes the command journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CommandEvent, error)
}

// Poller refreshes board state on a fixed cadence.
// Stop via Stop() or by cancelling the context given to Start.
type Poller interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
}

// Service aggregates the sub-services a view talks to.
type Service struct {
	Relays
	Schedules
	Refresher
	EventLog
	Poller

	loop       *Loop
	dispatcher *Dispatcher
	closeOnce  sync.Once
}

// Options tunes NewService. Zero values select defaults.
type Options struct {
	PollInterval time.Duration
	Journal      repository.EventRepo
	Log          *logger.Logger
}

// NewService wires the stores, loop, dispatcher and poller around api and
// reports every change to view.
func NewService(api DeviceAPI, view View, opts Options) *Service {
	if view == nil {
		view = NopView{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	c := &core{
		api:     api,
		loop:    NewLoop(),
		view:    view,
		journal: opts.Journal,
		log:     log,
	}
	c.relays = store.NewRelayStore(view.OnRelaySnapshotChanged)
	c.schedules = store.NewScheduleStore(view.OnScheduleListChanged)

	d := newDispatcher(c)
	return &Service{
		Relays:     d,
		Schedules:  d,
		Refresher:  d,
		EventLog:   NewEventLogService(opts.Journal),
		Poller:     newPoller(c, opts.PollInterval),
		loop:       c.loop,
		dispatcher: d,
	}
}

// Dispatcher returns the command dispatcher for synchronous use.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Run does an immediate full refresh, starts polling and blocks until ctx is
// cancelled, then tears the service down.
func (s *Service) Run(ctx context.Context) {
	s.Refresh()
	s.Poller.Start(ctx)
	<-ctx.Done()
	s.Close()
}

// Close stops polling, stops applying results and waits for in-flight
// commands. Safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.Poller != nil {
			s.Poller.Stop()
		}
		s.loop.Close()
		s.dispatcher.Wait()
	})
}
