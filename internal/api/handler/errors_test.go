package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/service"
)

func TestStatusFor(t *testing.T) {
	notFound := &client.StatusError{Method: "GET", Endpoint: "/v1/job/x/result", StatusCode: 404}
	serverErr := &client.StatusError{Method: "GET", Endpoint: "/version", StatusCode: 500}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", fmt.Errorf("jobs: %w", client.ErrUnauthorized), http.StatusUnauthorized},
		{"bad login", client.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not ready", service.ErrNotReady, http.StatusServiceUnavailable},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"unknown job", service.ErrJobNotFound, http.StatusNotFound},
		{"backend 404", fmt.Errorf("artifact: %w", notFound), http.StatusNotFound},
		{"bad suffix", client.ErrInvalidSuffix, http.StatusBadRequest},
		{"too large", service.ErrArtifactTooLarge, http.StatusRequestEntityTooLarge},
		{"backend 500", serverErr, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
