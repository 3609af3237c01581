package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the backend answers 401.
	ErrUnauthorized = errors.New("backend: authentication required")

	// ErrInvalidCredentials is returned when a login attempt is rejected.
	ErrInvalidCredentials = errors.New("backend: invalid credentials")

	// ErrInvalidSuffix is returned for job detail suffixes that are not a
	// plain relative path.
	ErrInvalidSuffix = errors.New("backend: invalid job detail suffix")
)

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %s %s returned HTTP %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s %s returned HTTP %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 404
}
