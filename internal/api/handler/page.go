package handler

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hakconsole/internal/api/middleware"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/service"
)

// DetailLink is a job detail offered in the sidebar. API is the suffix
// appended to the backend job path.
type DetailLink struct {
	Title string
	API   string
}

// DefaultDetails are the textual job details offered for every job.
var DefaultDetails = []DetailLink{
	{Title: "Message", API: "/message"},
	{Title: "Provider Payload", API: "/payload/provider"},
	{Title: "Publisher Payload", API: "/payload/publisher"},
}

// DefaultDownloads are the binary job details offered for every job.
var DefaultDownloads = []DetailLink{
	{Title: "Result", API: "/result"},
}

// PageConfig holds configuration for the HTML pages.
type PageConfig struct {
	PageSize  int
	Details   []DetailLink
	Downloads []DetailLink
}

// PageHandler renders the console's HTML pages.
type PageHandler struct {
	archive   *service.ArchiveService
	pageSize  int
	details   []DetailLink
	downloads []DetailLink
}

// NewPageHandler creates a new page handler.
// Parameters:
//   - archive: artifact archive service; may be disabled.
//   - cfg: page configuration; nil uses defaults.
//
// Returns:
//   - *PageHandler: initialized handler.
func NewPageHandler(archive *service.ArchiveService, cfg *PageConfig) *PageHandler {
	h := &PageHandler{
		archive:   archive,
		pageSize:  25,
		details:   DefaultDetails,
		downloads: DefaultDownloads,
	}
	if cfg != nil {
		if cfg.PageSize > 0 {
			h.pageSize = cfg.PageSize
		}
		if cfg.Details != nil {
			h.details = cfg.Details
		}
		if cfg.Downloads != nil {
			h.downloads = cfg.Downloads
		}
	}
	return h
}

// page is the data every template receives.
type page struct {
	State          service.State
	Title          string
	Error          string
	Text           string
	ArchiveEnabled bool
	CSRFToken      string

	Query     service.TableQuery
	Order     string
	Columns   []column
	Rows      []jobview.Row
	Total     int
	PrevHref  string
	NextHref  string
	Selected  *jobview.Row
	Details   []DetailLink
	Downloads []DetailLink

	System service.SystemInfo
}

func (h *PageHandler) newPage(c *gin.Context, console *service.Console) *page {
	return &page{
		State:          console.State(),
		CSRFToken:      middleware.GetCSRFToken(c),
		ArchiveEnabled: h.archive.Enabled(),
		Details:        h.details,
		Downloads:      h.downloads,
	}
}

// fail renders err, sending the browser back to the login prompt when the
// session lost its authentication.
func (h *PageHandler) fail(c *gin.Context, console *service.Console, err error) {
	if requiresLogin(err) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	_ = c.Error(err)
	p := h.newPage(c, console)
	p.Title = "Error"
	p.Error = err.Error()
	c.HTML(statusFor(err), "error", p)
}

// Index handles GET /. It shows the login prompt, the startup error or the
// jobs table depending on the console mode.
func (h *PageHandler) Index(c *gin.Context) {
	h.renderIndex(c, middleware.GetConsole(c), nil)
}

func (h *PageHandler) renderIndex(c *gin.Context, console *service.Console, selected *jobview.Row) {
	p := h.newPage(c, console)
	if p.State.Mode != service.ModeReady || p.State.LoginPrompt {
		c.HTML(http.StatusOK, "index", p)
		return
	}

	q := parseTableQuery(c, h.pageSize)
	result, err := console.JobRows(c.Request.Context(), q)
	if err != nil {
		h.fail(c, console, err)
		return
	}

	p.Query = q
	p.Order = orderOf(q)
	p.Columns = columnsFor(q)
	p.Rows = result.Rows
	p.Total = result.Total
	p.Selected = selected
	if q.Offset > 0 {
		prev := q
		prev.Offset = q.Offset - q.Limit
		if prev.Offset < 0 {
			prev.Offset = 0
		}
		p.PrevHref = tableHref(prev)
	}
	if q.Offset+q.Limit < result.Total {
		next := q
		next.Offset = q.Offset + q.Limit
		p.NextHref = tableHref(next)
	}
	// Selection may have changed under a 401 while fetching.
	p.State = console.State()

	c.HTML(http.StatusOK, "index", p)
}

// Login handles POST /login.
func (h *PageHandler) Login(c *gin.Context) {
	console := middleware.GetConsole(c)
	err := console.Login(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		middleware.GetLogger(c).WithError(err).Info("Login rejected")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout handles POST /logout.
func (h *PageHandler) Logout(c *gin.Context) {
	console := middleware.GetConsole(c)
	if err := console.Logout(c.Request.Context()); err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Failed to clear stored token on logout")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Retry handles POST /retry after a failed startup.
func (h *PageHandler) Retry(c *gin.Context) {
	middleware.GetConsole(c).Bootstrap(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

// Job handles GET /jobs/:uuid, selecting the job and showing its details.
func (h *PageHandler) Job(c *gin.Context) {
	console := middleware.GetConsole(c)
	c.Request = c.Request.WithContext(logger.SetJobUUID(c.Request.Context(), c.Param("uuid")))

	row, err := console.SelectJob(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.fail(c, console, err)
		return
	}
	h.renderIndex(c, console, &row)
}

// JobText handles GET /jobs/:uuid/text?api=&title=.
func (h *PageHandler) JobText(c *gin.Context) {
	console := middleware.GetConsole(c)
	ctx := c.Request.Context()

	if _, err := console.SelectJob(ctx, c.Param("uuid")); err != nil {
		h.fail(c, console, err)
		return
	}
	text, err := console.JobText(ctx, c.Query("api"))
	if err != nil {
		h.fail(c, console, err)
		return
	}

	p := h.newPage(c, console)
	p.Title = c.DefaultQuery("title", c.Query("api"))
	p.Text = text
	c.HTML(http.StatusOK, "text", p)
}

// Download handles GET /jobs/:uuid/download?api=, streaming the artifact
// from the backend to the browser.
func (h *PageHandler) Download(c *gin.Context) {
	console := middleware.GetConsole(c)
	ctx := c.Request.Context()

	if _, err := console.SelectJob(ctx, c.Param("uuid")); err != nil {
		h.fail(c, console, err)
		return
	}
	artifact, err := console.OpenArtifact(ctx, c.Query("api"))
	if err != nil {
		h.fail(c, console, err)
		return
	}
	defer artifact.Body.Close()

	c.DataFromReader(http.StatusOK, artifact.ContentLength, artifact.ContentType, artifact.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}),
	})
}

// Archive handles POST /jobs/:uuid/archive?api= from the sidebar form.
func (h *PageHandler) Archive(c *gin.Context) {
	console := middleware.GetConsole(c)
	jobUUID := c.Param("uuid")

	if _, err := h.archive.Archive(c.Request.Context(), console, jobUUID, c.Query("api")); err != nil {
		h.fail(c, console, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/jobs/"+jobUUID)
}

// Console handles GET /console/:uuid, showing the provider console output.
func (h *PageHandler) Console(c *gin.Context) {
	console := middleware.GetConsole(c)

	text, err := console.ConsoleText(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.fail(c, console, err)
		return
	}

	p := h.newPage(c, console)
	p.Title = "Console " + c.Param("uuid")
	p.Text = text
	c.HTML(http.StatusOK, "text", p)
}

// System handles GET /system.
func (h *PageHandler) System(c *gin.Context) {
	console := middleware.GetConsole(c)

	info, err := console.SystemInfo()
	if err != nil {
		h.fail(c, console, err)
		return
	}

	p := h.newPage(c, console)
	p.Title = "System"
	p.System = info
	c.HTML(http.StatusOK, "system", p)
}
