package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultCSRFCookieName is the default name of the CSRF cookie and form field.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the default header checked for the token.
	DefaultCSRFHeaderName = "X-Csrf-Token"

	csrfTokenLength = 32
	csrfKey         = "csrf_token"
)

// CSRFConfig holds configuration for CSRF protection.
type CSRFConfig struct {
	CookieName    string
	HeaderName    string
	FormFieldName string
	Secure        bool
}

// CSRF returns a middleware implementing the double-submit cookie pattern.
// A random token is stored in a cookie readable by the page, and every
// state-changing request must echo it in the X-Csrf-Token header or the
// csrf_token form field. GET, HEAD, OPTIONS and TRACE are exempt.
func CSRF(cfg CSRFConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}
	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultCSRFCookieName
	}

	return func(c *gin.Context) {
		token, _ := c.Cookie(cfg.CookieName)
		if token == "" {
			var err error
			token, err = generateCSRFToken(csrfTokenLength)
			if err != nil {
				GetLogger(c).WithError(err).Error("Failed to generate CSRF token")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Unable to generate CSRF token",
				})
				return
			}
			c.SetSameSite(http.SameSiteStrictMode)
			c.SetCookie(cfg.CookieName, token, 0, "/", "", cfg.Secure, false)
		}
		c.Set(csrfKey, token)

		if requiresCSRFValidation(c.Request.Method) && !validCSRFToken(c, token, cfg) {
			GetLogger(c).Warn("CSRF token validation failed")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "CSRF token validation failed",
			})
			return
		}

		c.Next()
	}
}

// GetCSRFToken returns the token the current request must echo back.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfKey)
}

func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

// generateCSRFToken fails closed: there is no fallback to a predictable token.
func generateCSRFToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func validCSRFToken(c *gin.Context, expected string, cfg CSRFConfig) bool {
	submitted := c.GetHeader(cfg.HeaderName)
	if submitted == "" {
		submitted = c.PostForm(cfg.FormFieldName)
	}
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) == 1
}
