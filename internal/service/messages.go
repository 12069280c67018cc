package service

import (
	"errors"
	"fmt"

	"light_control/internal/device"
	"light_control/internal/models"
)

// User-facing status texts.
const (
	msgStatusUpdated   = "Relay states updated"
	msgScheduleAdded   = "Schedule added"
	msgScheduleDeleted = "Schedule deleted"
	msgInvalidTimes    = "Please enter valid times"
	msgInvalidRelay    = "Please select a relay"
)

// failureText maps an error class to the message shown for one operation.
// An empty status text falls back to "Error: <code>".
type failureText struct {
	network   string
	withCause bool
	status    string
	parse     string
}

var (
	statusFailure = failureText{
		network: "Failed to update relay states",
		parse:   "Error parsing relay states",
	}
	toggleFailure = failureText{
		network:   "Connection Error",
		withCause: true,
	}
	scheduleFetchFailure = failureText{
		network: "Failed to fetch schedules",
		status:  "Error fetching schedules",
		parse:   "Error parsing schedules",
	}
	scheduleAddFailure = failureText{
		network: "Failed to add schedule",
		status:  "Error adding schedule",
	}
	scheduleDeleteFailure = failureText{
		network: "Failed to delete schedule",
		status:  "Error deleting schedule",
	}
)

func (f failureText) message(err error) string {
	var (
		statusErr *device.HTTPStatusError
		parseErr  *device.ParseError
		netErr    *device.NetworkError
	)
	switch {
	case errors.As(err, &statusErr):
		if f.status != "" {
			return f.status
		}
		return fmt.Sprintf("Error: %d", statusErr.StatusCode)
	case errors.As(err, &parseErr) && f.parse != "":
		return f.parse
	case errors.As(err, &netErr) && f.withCause:
		return fmt.Sprintf("%s: %v", f.network, netErr.Err)
	case f.withCause:
		return fmt.Sprintf("%s: %v", f.network, err)
	default:
		return f.network
	}
}

func toggledMessage(id models.RelayID) string {
	return fmt.Sprintf("Relay %d toggled", id)
}

func validationMessage(err error) string {
	var verr *models.ValidationError
	if errors.As(err, &verr) && verr.Field == "relay" {
		return msgInvalidRelay
	}
	return msgInvalidTimes
}

func isNetworkError(err error) bool {
	var netErr *device.NetworkError
	return errors.As(err, &netErr)
}
