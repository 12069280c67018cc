package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"light_control/internal/models"
)

// Board endpoints.
const (
	pathTime           = "/time"
	pathRelayStatus    = "/relay/status"
	pathRelayPrefix    = "/relay/"
	pathSchedules      = "/schedules"
	pathScheduleAdd    = "/schedule/add"
	pathScheduleDelete = "/schedule/delete"
)

// API is the typed board contract on top of a Transport.
type API struct {
	t Transport
}

// NewAPI wraps t.
func NewAPI(t Transport) *API {
	return &API{t: t}
}

// call performs a request and turns a non-2xx status into *HTTPStatusError.
func (a *API) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	res, err := a.t.Do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &HTTPStatusError{Method: method, Path: path, StatusCode: res.StatusCode}
	}
	return res.Body, nil
}

// Time returns the board's clock as plain text.
func (a *API) Time(ctx context.Context) (string, error) {
	b, err := a.call(ctx, http.MethodGet, pathTime, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// RelayStatus returns the reported value for each relay present in the payload.
// Relays the board leaves out are absent from the map.
func (a *API) RelayStatus(ctx context.Context) (map[models.RelayID]int, error) {
	b, err := a.call(ctx, http.MethodGet, pathRelayStatus, nil)
	if err != nil {
		return nil, err
	}
	return ParseRelayStatus(b)
}

// Toggle flips one relay. The board does not report the resulting state.
func (a *API) Toggle(ctx context.Context, id models.RelayID) error {
	if !id.Valid() {
		return fmt.Errorf("toggle: relay %d out of range", id)
	}
	_, err := a.call(ctx, http.MethodPost, pathRelayPrefix+id.String(), nil)
	return err
}

// Schedules returns the board's schedule list in board order.
func (a *API) Schedules(ctx context.Context) ([]models.ScheduleEntry, error) {
	b, err := a.call(ctx, http.MethodGet, pathSchedules, nil)
	if err != nil {
		return nil, err
	}
	return ParseSchedules(b)
}

// AddSchedule submits d. Callers validate d first.
func (a *API) AddSchedule(ctx context.Context, d models.ScheduleDraft) error {
	_, err := a.call(ctx, http.MethodPost, pathScheduleAdd, d)
	return err
}

// DeleteSchedule removes the schedule with the given board id.
func (a *API) DeleteSchedule(ctx context.Context, id int) error {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	_, err := a.call(ctx, http.MethodDelete, pathScheduleDelete+"?"+q.Encode(), nil)
	return err
}

// ParseRelayStatus decodes a {"1":1,"2":0,...} payload. Values are read the
// lenient way the board's JSON is usually consumed: numbers, numeric strings
// and booleans are accepted; anything else counts as 0.
func ParseRelayStatus(b []byte) (map[models.RelayID]int, error) {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &ParseError{What: "relay status", Err: err}
	}
	if raw == nil {
		return nil, &ParseError{What: "relay status", Err: errors.New("expected JSON object, got null")}
	}

	out := make(map[models.RelayID]int, models.RelayCount)
	for key, v := range raw {
		id, err := models.ParseRelayID(key)
		if err != nil {
			continue // unknown key
		}
		out[id] = relayValue(v)
	}
	return out, nil
}

func relayValue(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// wireSchedule mirrors ScheduleEntry with pointers so missing fields are detected.
type wireSchedule struct {
	ID        *int  `json:"id"`
	Relay     *int  `json:"relay"`
	OnHour    *int  `json:"onHour"`
	OnMinute  *int  `json:"onMinute"`
	OffHour   *int  `json:"offHour"`
	OffMinute *int  `json:"offMinute"`
	Enabled   *bool `json:"enabled"`
}

func (w wireSchedule) entry() (models.ScheduleEntry, error) {
	ints := []struct {
		name string
		v    *int
	}{
		{"id", w.ID}, {"relay", w.Relay},
		{"onHour", w.OnHour}, {"onMinute", w.OnMinute},
		{"offHour", w.OffHour}, {"offMinute", w.OffMinute},
	}
	for _, f := range ints {
		if f.v == nil {
			return models.ScheduleEntry{}, fmt.Errorf("missing field %q", f.name)
		}
	}
	if w.Enabled == nil {
		return models.ScheduleEntry{}, errors.New(`missing field "enabled"`)
	}
	return models.ScheduleEntry{
		ID:        *w.ID,
		Relay:     models.RelayID(*w.Relay),
		OnHour:    *w.OnHour,
		OnMinute:  *w.OnMinute,
		OffHour:   *w.OffHour,
		OffMinute: *w.OffMinute,
		Enabled:   *w.Enabled,
	}, nil
}

// ParseSchedules decodes the /schedules array. Every field is required.
func ParseSchedules(b []byte) ([]models.ScheduleEntry, error) {
	var raw []wireSchedule
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &ParseError{What: "schedules", Err: err}
	}
	if raw == nil {
		return nil, &ParseError{What: "schedules", Err: errors.New("expected JSON array, got null")}
	}

	out := make([]models.ScheduleEntry, 0, len(raw))
	for i, w := range raw {
		e, err := w.entry()
		if err != nil {
			return nil, &ParseError{What: fmt.Sprintf("schedule #%d", i), Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}
