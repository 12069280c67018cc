package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"light_control/internal/device"
	"light_control/internal/models"
)

// ---- Test doubles ----

// fakeAPI is a programmable DeviceAPI. Nil funcs succeed with zero values.
type fakeAPI struct {
	mu sync.Mutex

	timeFn      func(ctx context.Context) (string, error)
	statusFn    func(ctx context.Context) (map[models.RelayID]int, error)
	toggleFn    func(ctx context.Context, id models.RelayID) error
	schedulesFn func(ctx context.Context) ([]models.ScheduleEntry, error)
	addFn       func(ctx context.Context, d models.ScheduleDraft) error
	deleteFn    func(ctx context.Context, id int) error

	timeCalls, statusCalls, toggleCalls, scheduleCalls, addCalls, deleteCalls int
}

func (f *fakeAPI) count(n *int) {
	f.mu.Lock()
	*n++
	f.mu.Unlock()
}

func (f *fakeAPI) calls(n *int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *n
}

func (f *fakeAPI) Time(ctx context.Context) (string, error) {
	f.count(&f.timeCalls)
	if f.timeFn != nil {
		return f.timeFn(ctx)
	}
	return "12:00:00", nil
}

func (f *fakeAPI) RelayStatus(ctx context.Context) (map[models.RelayID]int, error) {
	f.count(&f.statusCalls)
	if f.statusFn != nil {
		return f.statusFn(ctx)
	}
	return map[models.RelayID]int{}, nil
}

func (f *fakeAPI) Toggle(ctx context.Context, id models.RelayID) error {
	f.count(&f.toggleCalls)
	if f.toggleFn != nil {
		return f.toggleFn(ctx, id)
	}
	return nil
}

func (f *fakeAPI) Schedules(ctx context.Context) ([]models.ScheduleEntry, error) {
	f.count(&f.scheduleCalls)
	if f.schedulesFn != nil {
		return f.schedulesFn(ctx)
	}
	return []models.ScheduleEntry{}, nil
}

func (f *fakeAPI) AddSchedule(ctx context.Context, d models.ScheduleDraft) error {
	f.count(&f.addCalls)
	if f.addFn != nil {
		return f.addFn(ctx, d)
	}
	return nil
}

func (f *fakeAPI) DeleteSchedule(ctx context.Context, id int) error {
	f.count(&f.deleteCalls)
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func statusErr(method, path string, code int) error {
	return &device.HTTPStatusError{Method: method, Path: path, StatusCode: code}
}

func netErr(method, path string) error {
	return &device.NetworkError{Method: method, Path: path, Err: errors.New("connection refused")}
}

func parseErr(what string) error {
	return &device.ParseError{What: what, Err: errors.New("unexpected token")}
}

var errBoardDown = netErr(http.MethodGet, "/relay/status")

// recView records every notification.
type recView struct {
	mu        sync.Mutex
	relays    []models.RelaySnapshot
	schedules [][]models.ScheduleEntry
	messages  []string
	times     []string
}

func (v *recView) OnRelaySnapshotChanged(s models.RelaySnapshot) {
	v.mu.Lock()
	v.relays = append(v.relays, s)
	v.mu.Unlock()
}

func (v *recView) OnScheduleListChanged(e []models.ScheduleEntry) {
	v.mu.Lock()
	v.schedules = append(v.schedules, e)
	v.mu.Unlock()
}

func (v *recView) OnStatusMessage(msg string) {
	v.mu.Lock()
	v.messages = append(v.messages, msg)
	v.mu.Unlock()
}

func (v *recView) OnTimeUpdated(t string) {
	v.mu.Lock()
	v.times = append(v.times, t)
	v.mu.Unlock()
}

func (v *recView) Messages() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.messages...)
}

func (v *recView) RelayCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.relays)
}

func (v *recView) TimeCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.times)
}

func (v *recView) LastMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.messages) == 0 {
		return ""
	}
	return v.messages[len(v.messages)-1]
}

// fakeEventRepo is an in-memory journal. List filters appended entries the
// way the SQLite repository does: inclusive bounds, exact type, oldest first.
type fakeEventRepo struct {
	mu sync.Mutex

	appended  []models.CommandEvent
	appendErr error
	listErr   error

	lists   int
	gotFrom time.Time
	gotTo   time.Time
	gotType string
}

func (f *fakeEventRepo) List(_ context.Context, from, to time.Time, typ string) ([]models.CommandEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []models.CommandEvent
	for _, e := range f.appended {
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) Append(_ context.Context, e models.CommandEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeEventRepo) Types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

// newTestDispatcher wires a dispatcher the way NewService does.
func newTestDispatcher(api *fakeAPI) (*Service, *recView, *fakeEventRepo) {
	view := &recView{}
	journal := &fakeEventRepo{}
	svc := NewService(api, view, Options{PollInterval: 10 * time.Millisecond, Journal: journal})
	return svc, view, journal
}

// eventually polls cond until it holds or a second passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
