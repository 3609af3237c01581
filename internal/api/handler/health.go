package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hakconsole/internal/api/middleware"
	"github.com/timmy/hakconsole/internal/service"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	manager *service.ConsoleManager
}

// NewHealthHandler creates a new health handler
// Parameters:
//   - manager: console manager reporting session counts.
//
// Returns:
//   - *HealthHandler: initialized handler.
func NewHealthHandler(manager *service.ConsoleManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Health returns the health status of the service. The session store
// being unreachable makes the service unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	stats, err := h.manager.Stats(c.Request.Context())
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "session store unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"consoles": stats.Consoles,
		"sessions": stats.Sessions,
	})
}
