package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hakconsole/internal/api/middleware"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/service"
)

// ConsoleAPIHandler serves the console state and jobs table as JSON.
type ConsoleAPIHandler struct {
	archive  *service.ArchiveService
	pageSize int
}

// NewConsoleAPIHandler creates a new JSON API handler.
// Parameters:
//   - archive: artifact archive service; may be disabled.
//   - pageSize: jobs per page when the request gives no limit.
//
// Returns:
//   - *ConsoleAPIHandler: initialized handler.
func NewConsoleAPIHandler(archive *service.ArchiveService, pageSize int) *ConsoleAPIHandler {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &ConsoleAPIHandler{archive: archive, pageSize: pageSize}
}

func (h *ConsoleAPIHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{
		"error":     err.Error(),
		"mode":      middleware.GetConsole(c).Mode(),
		"requestId": logger.GetRequestID(c.Request.Context()),
	})
}

// Session handles GET /api/v1/session.
func (h *ConsoleAPIHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.GetConsole(c).State())
}

// ListJobs handles GET /api/v1/jobs.
func (h *ConsoleAPIHandler) ListJobs(c *gin.Context) {
	q := parseTableQuery(c, h.pageSize)
	result, err := middleware.GetConsole(c).JobRows(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  result.Total,
		"offset": q.Offset,
		"limit":  q.Limit,
		"rows":   result.Rows,
	})
}

// GetJob handles GET /api/v1/jobs/:uuid, selecting the job.
func (h *ConsoleAPIHandler) GetJob(c *gin.Context) {
	row, err := middleware.GetConsole(c).SelectJob(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// System handles GET /api/v1/system.
func (h *ConsoleAPIHandler) System(c *gin.Context) {
	info, err := middleware.GetConsole(c).SystemInfo()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Archive handles POST /api/v1/jobs/:uuid/archive?api=.
func (h *ConsoleAPIHandler) Archive(c *gin.Context) {
	result, err := h.archive.Archive(c.Request.Context(), middleware.GetConsole(c), c.Param("uuid"), c.Query("api"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if result.Existing {
		c.JSON(http.StatusOK, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}
