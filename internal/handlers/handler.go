package handlers

import (
	"net/http"

	"light_control/internal/logger"
	"light_control/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"

	errInvalidBodyPref = "invalid body: "
	errNoLiveFeed      = "live feed is not enabled"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. hub may be nil,
// in which case /ws answers 503.
func NewHandler(services *service.Service, hub *Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	// Live notifications over WebSocket, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerRelayRoutes(api)
		h.registerScheduleRoutes(api)
		api.POST("/refresh", h.refresh)
		api.GET("/logs", h.getLogs)
	}
}

func (h *Handler) registerRelayRoutes(api *gin.RouterGroup) {
	relays := api.Group("/relays")
	{
		relays.GET("", h.getRelays)
		relays.POST("/:id/toggle", h.toggleRelay)
	}
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	schedules := api.Group("/schedules")
	{
		schedules.GET("", h.getSchedules)
		// Body example: {"relay":2,"onTime":"06:30","offTime":"07:15"}
		schedules.POST("", h.addSchedule)
		schedules.DELETE("/:id", h.deleteSchedule)
	}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Refresh everything
// @Description  Re-reads relay status, board clock and schedules in the background. Results arrive over /ws.
// @Tags         system
// @Produce      json
// @Success      202  {object}  map[string]string
// @Router       /api/v1/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	h.services.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
}
