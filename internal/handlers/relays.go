package handlers

import (
	"net/http"

	"light_control/internal/models"

	"github.com/gin-gonic/gin"
)

const errTogglePending = "toggle already in flight for this relay"

// @Summary      Relay states
// @Description  Last known on/off and in-flight state of every relay.
// @Tags         relays
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "relays"
// @Router       /api/v1/relays [get]
func (h *Handler) getRelays(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"relays": h.services.RelaySnapshot()})
}

// @Summary      Toggle relay
// @Description  Starts a toggle. The outcome is reported over /ws as a status message and relay snapshot.
// @Tags         relays
// @Produce      json
// @Param        id   path      int  true  "Relay number"  minimum(1)  maximum(4)
// @Success      202  {object}  map[string]interface{}  "status, relay"
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/relays/{id}/toggle [post]
func (h *Handler) toggleRelay(c *gin.Context) {
	id, err := models.ParseRelayID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.services.ToggleRelay(id) {
		c.JSON(http.StatusConflict, gin.H{"error": errTogglePending})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted, "relay": id})
}
