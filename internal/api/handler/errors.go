package handler

import (
	"errors"
	"net/http"

	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/service"
)

// statusFor maps service and backend errors to the HTTP status the console
// answers with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrUnauthorized), errors.Is(err, client.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoJobSelected), errors.Is(err, client.ErrInvalidSuffix):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrArtifactTooLarge):
		return http.StatusRequestEntityTooLarge
	case client.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// requiresLogin reports whether err should send the browser back to the
// login prompt.
func requiresLogin(err error) bool {
	return errors.Is(err, client.ErrUnauthorized) || errors.Is(err, service.ErrNotReady)
}
