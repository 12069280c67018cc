package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"light_control/internal/models"

	"github.com/gin-gonic/gin"
)

const errScheduleID = "invalid schedule id"

// scheduleView adds the display fields to a schedule entry.
type scheduleView struct {
	models.ScheduleEntry
	OnTime  string `json:"onTime"`
	OffTime string `json:"offTime"`
	Status  string `json:"status"`
}

func toScheduleViews(entries []models.ScheduleEntry) []scheduleView {
	out := make([]scheduleView, 0, len(entries))
	for _, e := range entries {
		out = append(out, scheduleView{
			ScheduleEntry: e,
			OnTime:        e.OnTime(),
			OffTime:       e.OffTime(),
			Status:        e.Status(),
		})
	}
	return out
}

// AddScheduleRequest is an exported model for Swagger docs of the addSchedule payload.
type AddScheduleRequest struct {
	// Relay number 1..4
	Relay int `json:"relay" example:"2"`
	// Switch-on time, HH:MM
	OnTime string `json:"onTime" example:"06:30"`
	// Switch-off time, HH:MM
	OffTime string `json:"offTime" example:"07:15"`
}

// @Summary      List schedules
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, schedules"
// @Router       /api/v1/schedules [get]
func (h *Handler) getSchedules(c *gin.Context) {
	list := toScheduleViews(h.services.ScheduleSnapshot())
	c.JSON(http.StatusOK, gin.H{
		"count":     len(list),
		"schedules": list,
	})
}

// @Summary      Add schedule
// @Description  Validates the draft and submits it to the board in the background.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body      AddScheduleRequest  true  "Schedule"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/schedules [post]
func (h *Handler) addSchedule(c *gin.Context) {
	var draft models.ScheduleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.SubmitSchedule(draft); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to submit schedule", "schedule_submit_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}

// @Summary      Delete schedule
// @Tags         schedules
// @Produce      json
// @Param        id   path      int  true  "Board schedule id"
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
func (h *Handler) deleteSchedule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errScheduleID})
		return
	}
	h.services.RemoveSchedule(id)
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}
