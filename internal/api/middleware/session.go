package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/service"
)

const consoleKey = "console"

// SessionConfig holds the session cookie settings.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session resolves the browser's console from the session cookie, issuing
// a new session when the cookie is missing or unknown.
func Session(manager *service.ConsoleManager, cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(cfg.CookieName)

		console, err := manager.Open(c.Request.Context(), id)
		if err != nil {
			GetLogger(c).WithError(err).Error("Failed to open console session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Session unavailable",
			})
			return
		}

		if console.ID() != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, console.ID(), int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
		}

		ctx := logger.SetSessionID(c.Request.Context(), console.ID())
		c.Request = c.Request.WithContext(ctx)
		c.Set(consoleKey, console)

		c.Next()
	}
}

// GetConsole returns the console resolved by Session.
func GetConsole(c *gin.Context) *service.Console {
	if v, ok := c.Get(consoleKey); ok {
		if console, ok := v.(*service.Console); ok {
			return console
		}
	}
	return nil
}
