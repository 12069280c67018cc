package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"light_control/internal/models"
)

func TestToggle_Success(t *testing.T) {
	api := &fakeAPI{}
	svc, view, journal := newTestDispatcher(api)
	defer svc.Close()
	d := svc.Dispatcher()

	if err := d.Toggle(context.Background(), 2); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	r := d.RelaySnapshot().Get(2)
	if r.Pending || r.On {
		t.Fatalf("after success: pending cleared and on unchanged expected, got %+v", r)
	}
	if view.LastMessage() != "Relay 2 toggled" {
		t.Fatalf("message = %q", view.LastMessage())
	}
	// begin + complete
	if view.RelayCount() != 2 {
		t.Fatalf("expected 2 relay notifications, got %d", view.RelayCount())
	}
	if api.calls(&api.statusCalls) != 0 {
		t.Fatal("success must not trigger a status refresh")
	}
	if got := journal.Types(); len(got) != 1 || got[0] != models.EventToggle {
		t.Fatalf("journal = %v", got)
	}
	if journal.appended[0].EventID == "" {
		t.Fatal("journal entry should carry an event id")
	}
}

func TestToggle_HTTPErrorRefreshesStatus(t *testing.T) {
	api := &fakeAPI{
		toggleFn: func(context.Context, models.RelayID) error {
			return statusErr(http.MethodPost, "/relay/1", 500)
		},
		statusFn: func(context.Context) (map[models.RelayID]int, error) {
			return map[models.RelayID]int{1: 1, 2: 0, 3: 0, 4: 0}, nil
		},
	}
	svc, view, journal := newTestDispatcher(api)
	defer svc.Close()
	d := svc.Dispatcher()

	before := d.RelaySnapshot().Get(1).On
	err := d.Toggle(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}

	msgs := view.Messages()
	if len(msgs) == 0 || msgs[0] != "Error: 500" {
		t.Fatalf("messages = %v", msgs)
	}
	if api.calls(&api.statusCalls) != 1 {
		t.Fatalf("expected one corrective status fetch, got %d", api.calls(&api.statusCalls))
	}
	r := d.RelaySnapshot().Get(1)
	if r.Pending {
		t.Fatal("pending must be cleared after failure")
	}
	// The failure itself leaves on alone; only the corrective fetch sets it.
	if before || !r.On {
		t.Fatalf("expected on from corrective fetch, got %+v", r)
	}
	if got := journal.Types(); len(got) != 1 || got[0] != models.EventToggleFailed {
		t.Fatalf("journal = %v", got)
	}
}

func TestToggle_FailureLeavesOnUnchanged(t *testing.T) {
	api := &fakeAPI{
		toggleFn: func(context.Context, models.RelayID) error {
			return statusErr(http.MethodPost, "/relay/3", 500)
		},
		statusFn: func(context.Context) (map[models.RelayID]int, error) {
			return nil, errBoardDown
		},
	}
	svc, view, _ := newTestDispatcher(api)
	defer svc.Close()
	d := svc.Dispatcher()

	_ = d.Toggle(context.Background(), 3)
	r := d.RelaySnapshot().Get(3)
	if r.On || r.Pending {
		t.Fatalf("expected relay untouched and idle, got %+v", r)
	}
	msgs := view.Messages()
	if len(msgs) != 2 || msgs[0] != "Error: 500" || msgs[1] != "Failed to update relay states" {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestToggle_FailureKeepsRelayOn(t *testing.T) {
	statusUp := true
	api := &fakeAPI{
		toggleFn: func(context.Context, models.RelayID) error {
			return statusErr(http.MethodPost, "/relay/2", 500)
		},
		statusFn: func(context.Context) (map[models.RelayID]int, error) {
			if statusUp {
				return map[models.RelayID]int{1: 0, 2: 1, 3: 0, 4: 0}, nil
			}
			return nil, errBoardDown
		},
	}
	svc, view, journal := newTestDispatcher(api)
	defer svc.Close()
	d := svc.Dispatcher()

	if err := d.RefreshStatus(context.Background()); err != nil {
		t.Fatalf("RefreshStatus: %v", err)
	}
	if !d.RelaySnapshot().Get(2).On {
		t.Fatal("relay 2 should start on")
	}

	statusUp = false
	if err := d.Toggle(context.Background(), 2); err == nil {
		t.Fatal("expected error")
	}

	r := d.RelaySnapshot().Get(2)
	if !r.On || r.Pending {
		t.Fatalf("failed toggle must keep relay 2 on and clear pending, got %+v", r)
	}
	msgs := view.Messages()
	if len(msgs) != 2 || msgs[0] != "Error: 500" || msgs[1] != "Failed to update relay states" {
		t.Fatalf("messages = %v", msgs)
	}
	if api.calls(&api.statusCalls) != 2 {
		t.Fatalf("expected one corrective status fetch, got %d", api.calls(&api.statusCalls)-1)
	}
	types := journal.Types()
	if len(types) == 0 || types[0] != models.EventToggleFailed {
		t.Fatalf("journal = %v", types)
	}
}

func TestToggle_NetworkErrorMessage(t *testing.T) {
	api := &fakeAPI{
		toggleFn: func(context.Context, models.RelayID) error {
			return netErr(http.MethodPost, "/relay/4")
		},
	}
	svc, view, _ := newTestDispatcher(api)
	defer svc.Close()

	_ = svc.Dispatcher().Toggle(context.Background(), 4)
	if msgs := view.Messages(); len(msgs) == 0 || msgs[0] != "Connection Error: connection refused" {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestToggle_InvalidRelay(t *testing.T) {
	api := &fakeAPI{}
	svc, _, _ := newTestDispatcher(api)
	defer svc.Close()

	err := svc.Dispatcher().Toggle(context.Background(), 5)
	if !errors.Is(err, ErrUnknownRelay) {
		t.Fatalf("expected ErrUnknownRelay, got %v", err)
	}
	if api.calls(&api.toggleCalls) != 0 {
		t.Fatal("no request expected")
	}
}

func TestToggleRelay_DroppedWhilePending(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		toggleFn: func(_ context.Context, id models.RelayID) error {
			if id == 1 {
				close(entered)
				<-release
			}
			return nil
		},
	}
	svc, view, _ := newTestDispatcher(api)
	defer svc.Close()

	if !svc.ToggleRelay(1) {
		t.Fatal("first ToggleRelay should be accepted")
	}
	<-entered
	if !svc.RelaySnapshot().Get(1).Pending {
		t.Fatal("relay 1 should be pending while the request is in flight")
	}
	if svc.ToggleRelay(1) {
		t.Fatal("second ToggleRelay while pending should be dropped")
	}
	if err := svc.Dispatcher().Toggle(context.Background(), 1); !errors.Is(err, ErrTogglePending) {
		t.Fatalf("expected ErrTogglePending, got %v", err)
	}
	// Other relays are independent.
	if !svc.ToggleRelay(2) {
		t.Fatal("relay 2 should accept a toggle")
	}

	close(release)
	svc.Dispatcher().Wait()

	if api.calls(&api.toggleCalls) != 2 {
		t.Fatalf("expected 2 toggle requests, got %d", api.calls(&api.toggleCalls))
	}
	if svc.RelaySnapshot().Get(1).Pending {
		t.Fatal("pending must clear on completion")
	}
	if !contains(view.Messages(), "Relay 1 toggled") {
		t.Fatalf("messages = %v", view.Messages())
	}
}

func TestAddSchedule_Validation(t *testing.T) {
	tests := []struct {
		name    string
		draft   models.ScheduleDraft
		field   string
		message string
	}{
		{"empty_on", models.ScheduleDraft{Relay: 1, OnTime: "", OffTime: "07:00"}, "onTime", "Please enter valid times"},
		{"empty_off", models.ScheduleDraft{Relay: 1, OnTime: "06:00", OffTime: ""}, "offTime", "Please enter valid times"},
		{"no_relay", models.ScheduleDraft{Relay: 0, OnTime: "06:00", OffTime: "07:00"}, "relay", "Please select a relay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			svc, view, _ := newTestDispatcher(api)
			defer svc.Close()

			err := svc.Dispatcher().AddSchedule(context.Background(), tt.draft)
			var verr *models.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected ValidationError on %s, got %v", tt.field, err)
			}
			if api.calls(&api.addCalls) != 0 {
				t.Fatal("validation failure must not reach the network")
			}
			if view.LastMessage() != tt.message {
				t.Fatalf("message = %q, want %q", view.LastMessage(), tt.message)
			}

			// The non-blocking form validates synchronously too.
			if err := svc.SubmitSchedule(tt.draft); err == nil {
				t.Fatal("SubmitSchedule should return the validation error")
			}
			svc.Dispatcher().Wait()
			if api.calls(&api.addCalls) != 0 {
				t.Fatal("SubmitSchedule must not reach the network on invalid input")
			}
		})
	}
}

func TestAddSchedule_SuccessRefetches(t *testing.T) {
	var sent models.ScheduleDraft
	api := &fakeAPI{
		addFn: func(_ context.Context, d models.ScheduleDraft) error {
			sent = d
			return nil
		},
		schedulesFn: func(context.Context) ([]models.ScheduleEntry, error) {
			return []models.ScheduleEntry{{ID: 1, Relay: 2, OnHour: 6, OnMinute: 30, OffHour: 7, OffMinute: 15, Enabled: true}}, nil
		},
	}
	svc, view, journal := newTestDispatcher(api)
	defer svc.Close()

	draft := models.ScheduleDraft{Relay: 2, OnTime: "06:30", OffTime: "07:15"}
	if err := svc.SubmitSchedule(draft); err != nil {
		t.Fatalf("SubmitSchedule: %v", err)
	}
	svc.Dispatcher().Wait()

	if sent != draft {
		t.Fatalf("sent %+v, want %+v", sent, draft)
	}
	if !contains(view.Messages(), "Schedule added") {
		t.Fatalf("messages = %v", view.Messages())
	}
	list := svc.ScheduleSnapshot()
	if len(list) != 1 || list[0].OnTime() != "06:30" {
		t.Fatalf("schedules = %+v", list)
	}
	if got := journal.Types(); len(got) != 1 || got[0] != models.EventScheduleAdd {
		t.Fatalf("journal = %v", got)
	}
}

func TestAddSchedule_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"network", netErr(http.MethodPost, "/schedule/add"), "Failed to add schedule"},
		{"http", statusErr(http.MethodPost, "/schedule/add", 400), "Error adding schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{addFn: func(context.Context, models.ScheduleDraft) error { return tt.err }}
			svc, view, journal := newTestDispatcher(api)
			defer svc.Close()

			err := svc.Dispatcher().AddSchedule(context.Background(), models.ScheduleDraft{Relay: 1, OnTime: "1", OffTime: "2"})
			if err == nil {
				t.Fatal("expected error")
			}
			if view.LastMessage() != tt.message {
				t.Fatalf("message = %q, want %q", view.LastMessage(), tt.message)
			}
			if api.calls(&api.scheduleCalls) != 0 {
				t.Fatal("failed add must not refetch")
			}
			if got := journal.Types(); len(got) != 1 || got[0] != models.EventScheduleAddFailed {
				t.Fatalf("journal = %v", got)
			}
		})
	}
}

func TestDeleteSchedule(t *testing.T) {
	var deleted int
	api := &fakeAPI{deleteFn: func(_ context.Context, id int) error {
		deleted = id
		return nil
	}}
	svc, view, _ := newTestDispatcher(api)
	defer svc.Close()

	svc.RemoveSchedule(7)
	svc.Dispatcher().Wait()

	if deleted != 7 {
		t.Fatalf("deleted id = %d", deleted)
	}
	if !contains(view.Messages(), "Schedule deleted") {
		t.Fatalf("messages = %v", view.Messages())
	}
	if api.calls(&api.scheduleCalls) != 1 {
		t.Fatal("successful delete should refetch schedules")
	}
}

func TestDeleteSchedule_Failures(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{netErr(http.MethodDelete, "/schedule/delete?id=1"), "Failed to delete schedule"},
		{statusErr(http.MethodDelete, "/schedule/delete?id=1", 404), "Error deleting schedule"},
	}
	for _, tt := range tests {
		api := &fakeAPI{deleteFn: func(context.Context, int) error { return tt.err }}
		svc, view, _ := newTestDispatcher(api)

		if err := svc.Dispatcher().DeleteSchedule(context.Background(), 1); err == nil {
			t.Fatal("expected error")
		}
		if view.LastMessage() != tt.message {
			t.Fatalf("message = %q, want %q", view.LastMessage(), tt.message)
		}
		if api.calls(&api.scheduleCalls) != 0 {
			t.Fatal("failed delete must not refetch")
		}
		svc.Close()
	}
}

func TestFetchSchedules_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"network", netErr(http.MethodGet, "/schedules"), "Failed to fetch schedules"},
		{"http", statusErr(http.MethodGet, "/schedules", 503), "Error fetching schedules"},
		{"parse", parseErr("schedules"), "Error parsing schedules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := false
			api := &fakeAPI{schedulesFn: func(context.Context) ([]models.ScheduleEntry, error) {
				if fail {
					return nil, tt.err
				}
				return []models.ScheduleEntry{{ID: 1}}, nil
			}}
			svc, view, _ := newTestDispatcher(api)
			defer svc.Close()
			d := svc.Dispatcher()

			if err := d.FetchSchedules(context.Background()); err != nil {
				t.Fatalf("first fetch: %v", err)
			}
			fail = true
			if err := d.FetchSchedules(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			if view.LastMessage() != tt.message {
				t.Fatalf("message = %q, want %q", view.LastMessage(), tt.message)
			}
			if got := d.ScheduleSnapshot(); len(got) != 1 || got[0].ID != 1 {
				t.Fatalf("store must keep the previous list, got %+v", got)
			}
		})
	}
}

func TestRefreshStatus_AppliesValues(t *testing.T) {
	api := &fakeAPI{statusFn: func(context.Context) (map[models.RelayID]int, error) {
		return map[models.RelayID]int{1: 1, 2: 0, 3: 1, 4: 1}, nil
	}}
	svc, view, _ := newTestDispatcher(api)
	defer svc.Close()

	if err := svc.Dispatcher().RefreshStatus(context.Background()); err != nil {
		t.Fatalf("RefreshStatus: %v", err)
	}
	want := [models.RelayCount]bool{true, false, true, true}
	if got := svc.RelaySnapshot().OnValues(); got != want {
		t.Fatalf("on values = %v, want %v", got, want)
	}
	if len(view.Messages()) != 0 {
		t.Fatalf("a plain successful poll shows no message, got %v", view.Messages())
	}
}

func TestRefreshStatus_ParseError(t *testing.T) {
	api := &fakeAPI{statusFn: func(context.Context) (map[models.RelayID]int, error) {
		return nil, parseErr("relay status")
	}}
	svc, view, journal := newTestDispatcher(api)
	defer svc.Close()

	_ = svc.Dispatcher().RefreshStatus(context.Background())
	if view.LastMessage() != "Error parsing relay states" {
		t.Fatalf("message = %q", view.LastMessage())
	}
	if view.RelayCount() != 0 {
		t.Fatal("failed poll must not notify a snapshot")
	}
	if len(journal.Types()) != 0 {
		t.Fatal("parse errors are not link transitions")
	}
}

func TestRefreshStatus_LinkTransitions(t *testing.T) {
	down := true
	api := &fakeAPI{statusFn: func(context.Context) (map[models.RelayID]int, error) {
		if down {
			return nil, errBoardDown
		}
		return map[models.RelayID]int{1: 1}, nil
	}}
	svc, view, journal := newTestDispatcher(api)
	defer svc.Close()
	d := svc.Dispatcher()
	ctx := context.Background()

	_ = d.RefreshStatus(ctx)
	_ = d.RefreshStatus(ctx)
	down = false
	_ = d.RefreshStatus(ctx)
	_ = d.RefreshStatus(ctx)

	want := []string{models.EventDeviceOffline, models.EventDeviceOnline}
	got := journal.Types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("journal = %v, want %v", got, want)
	}
	msgs := view.Messages()
	wantMsgs := []string{"Failed to update relay states", "Failed to update relay states", "Relay states updated"}
	if len(msgs) != len(wantMsgs) {
		t.Fatalf("messages = %v, want %v", msgs, wantMsgs)
	}
	for i := range wantMsgs {
		if msgs[i] != wantMsgs[i] {
			t.Fatalf("messages = %v, want %v", msgs, wantMsgs)
		}
	}
}

func TestRefreshAll(t *testing.T) {
	api := &fakeAPI{timeFn: func(context.Context) (string, error) {
		return "", errBoardDown
	}}
	svc, view, _ := newTestDispatcher(api)
	defer svc.Close()

	err := svc.Dispatcher().RefreshAll(context.Background())
	if !errors.Is(err, errBoardDown) {
		t.Fatalf("expected joined time error, got %v", err)
	}
	if api.calls(&api.statusCalls) != 1 || api.calls(&api.scheduleCalls) != 1 || api.calls(&api.timeCalls) != 1 {
		t.Fatal("RefreshAll should hit status, time and schedules once each")
	}
	if view.TimeCount() != 0 {
		t.Fatal("failed clock read must not update the view")
	}
}

func TestJournalFailureIsNotReturned(t *testing.T) {
	api := &fakeAPI{}
	view := &recView{}
	journal := &fakeEventRepo{appendErr: errors.New("disk full")}
	svc := NewService(api, view, Options{Journal: journal})
	defer svc.Close()

	if err := svc.Dispatcher().Toggle(context.Background(), 1); err != nil {
		t.Fatalf("journal errors must not fail the command: %v", err)
	}
}

func TestIntentsAfterClose(t *testing.T) {
	api := &fakeAPI{}
	svc, view, _ := newTestDispatcher(api)
	svc.Close()

	if svc.ToggleRelay(1) {
		t.Fatal("ToggleRelay after Close should be dropped")
	}
	svc.RemoveSchedule(1)
	svc.Refresh()
	svc.Dispatcher().Wait()

	if api.calls(&api.toggleCalls)+api.calls(&api.deleteCalls)+api.calls(&api.statusCalls) != 0 {
		t.Fatal("no requests expected after Close")
	}
	if len(view.Messages()) != 0 || view.RelayCount() != 0 {
		t.Fatal("no notifications expected after Close")
	}
	// Close is idempotent.
	svc.Close()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
