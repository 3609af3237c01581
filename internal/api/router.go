package api

import (
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hakconsole/internal/api/handler"
	"github.com/timmy/hakconsole/internal/api/middleware"
	"github.com/timmy/hakconsole/internal/service"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// RouterConfig holds what SetupRouter needs besides the services.
type RouterConfig struct {
	Mode     string
	PageSize int
	CORS     middleware.CORSConfig
	Session  middleware.SessionConfig
}

// SetupRouter configures the Gin router with all routes
// Parameters:
//   - manager: console sessions shared by pages and API.
//   - archive: artifact archive service; may be disabled.
//   - cfg: gin mode, page size, CORS and session cookie settings.
//
// Returns:
//   - *gin.Engine: router ready to serve.
//   - error: non-nil if the embedded templates fail to parse.
func SetupRouter(
	manager *service.ConsoleManager,
	archive *service.ArchiveService,
	cfg RouterConfig,
) (*gin.Engine, error) {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(manager)
	pageHandler := handler.NewPageHandler(archive, &handler.PageConfig{PageSize: cfg.PageSize})
	apiHandler := handler.NewConsoleAPIHandler(archive, cfg.PageSize)

	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 8 * time.Hour
	}
	session := middleware.Session(manager, cfg.Session)
	csrf := middleware.CSRF(middleware.CSRFConfig{Secure: cfg.Session.Secure})

	// Health check
	r.GET("/health", healthHandler.Health)

	// Pages
	pages := r.Group("/", csrf, session)
	{
		pages.GET("/", pageHandler.Index)
		pages.POST("/login", pageHandler.Login)
		pages.POST("/logout", pageHandler.Logout)
		pages.POST("/retry", pageHandler.Retry)
		pages.GET("/system", pageHandler.System)
		pages.GET("/jobs/:uuid", pageHandler.Job)
		pages.GET("/jobs/:uuid/text", pageHandler.JobText)
		pages.GET("/jobs/:uuid/download", pageHandler.Download)
		pages.POST("/jobs/:uuid/archive", pageHandler.Archive)
		pages.GET("/console/:uuid", pageHandler.Console)
	}

	// API v1 routes
	v1 := r.Group("/api/v1", csrf, session)
	{
		v1.GET("/session", apiHandler.Session)
		v1.GET("/jobs", apiHandler.ListJobs)
		v1.GET("/jobs/:uuid", apiHandler.GetJob)
		v1.GET("/system", apiHandler.System)
		v1.POST("/jobs/:uuid/archive", apiHandler.Archive)
	}

	return r, nil
}

func parseTemplates() (*template.Template, error) {
	return template.New("root").Funcs(template.FuncMap{
		// Row icons and labels are built by jobview with their dynamic
		// parts escaped.
		"safe": func(s string) template.HTML { return template.HTML(s) },
	}).ParseFS(templateFS, "templates/*.tmpl")
}
