package handlers

import (
	"errors"
	"net/http"
	"time"

	"light_control/internal/models"
	"light_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errRelayInvalid = "invalid 'relay'; use 1..4"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// @Summary      Command journal
// @Description  Toggles, schedule changes and board link transitions, oldest first. A date-only 'to' covers the whole day.
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to     query   string  false  "End of range, inclusive"  example(2025-08-31)
// @Param        type   query   string  false  "Event type"  Enums(TOGGLE,TOGGLE_FAILED,SCHEDULE_ADD,SCHEDULE_ADD_FAILED,SCHEDULE_DELETE,SCHEDULE_DELETE_FAILED,DEVICE_OFFLINE,DEVICE_ONLINE)
// @Param        relay  query   int     false  "Only entries about this relay"  minimum(1) maximum(4)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/logs [get]
func (h *Handler) getLogs(c *gin.Context) {
	f, err := logFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoJournal):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrUnknownEventType),
		errors.Is(err, service.ErrUnknownRelay):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type, "relay", int(f.Relay))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// logFilterFromQuery reads from, to, type and relay. Type is passed through
// as given; the event log normalizes and checks it.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, error) {
	f := service.LogFilter{Type: c.Query("type")}
	var err error
	if qs := c.Query("from"); qs != "" {
		if f.From, err = parseQueryTime(qs, false); err != nil {
			return f, errors.New(errFromInvalid)
		}
	}
	if qs := c.Query("to"); qs != "" {
		if f.To, err = parseQueryTime(qs, true); err != nil {
			return f, errors.New(errToInvalid)
		}
	}
	if qs := c.Query("relay"); qs != "" {
		if f.Relay, err = models.ParseRelayID(qs); err != nil {
			return f, errors.New(errRelayInvalid)
		}
	}
	return f, nil
}

// parseQueryTime accepts RFC3339, 'YYYY-MM-DD HH:MM:SS' (UTC) or a bare date.
// A bare date used as an upper bound means the last instant of that day.
func parseQueryTime(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(layoutDateTime, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(layoutDate, s)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
