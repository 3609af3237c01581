package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/jobview"
)

func newTestContext(t *testing.T, token string) (*commandContext, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/version" {
			_, _ = io.WriteString(w, `{"application":"Hakbot","version":"1.0.0","timestamp":"2017-06-01"}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tkn" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/providers":
			_, _ = io.WriteString(w, `[{"name":"Nmap","class":"io.hakbot.Nmap","console":true}]`)
		case "/v1/publishers":
			_, _ = io.WriteString(w, `[]`)
		case "/v1/job":
			_, _ = io.WriteString(w, `[
			  {"uuid":"j1","name":"alpha","provider":"io.hakbot.Nmap","publisher":null,"state":"COMPLETED","created":1500000000,"completed":1500000600},
			  {"uuid":"j2","name":"beta","provider":"io.hakbot.Gone","publisher":null,"state":"IN_QUEUE","created":1500000100}]`)
		case "/v1/job/j1/message":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "done")
		case "/v1/console/job/j1":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "console line")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	api := client.New(&client.Config{BaseURL: srv.URL, APIPrefix: "/v1", Timeout: 5 * time.Second})
	out := &bytes.Buffer{}
	return &commandContext{
		Ctx:       context.Background(),
		API:       api.WithSession(staticToken(token), nil),
		Formatter: jobview.NewFormatter(time.UTC),
		Out:       out,
	}, out
}

func TestRunJobs(t *testing.T) {
	ctx, out := newTestContext(t, "tkn")
	require.NoError(t, runJobs(ctx, []string{"-sort", "name", "-desc"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "UUID"))
	assert.True(t, strings.HasPrefix(lines[1], "j2"))
	assert.Contains(t, lines[1], jobview.InvalidPlugin)
	assert.Contains(t, lines[2], "Nmap")
	assert.Contains(t, lines[2], "10 min")
}

func TestRunJobsSearch(t *testing.T) {
	ctx, out := newTestContext(t, "tkn")
	require.NoError(t, runJobs(ctx, []string{"-search", "ALPHA"}))
	assert.Contains(t, out.String(), "j1")
	assert.NotContains(t, out.String(), "j2")
}

func TestRunJob(t *testing.T) {
	ctx, out := newTestContext(t, "tkn")
	require.NoError(t, runJob(ctx, []string{"j1"}))
	assert.Contains(t, out.String(), "hakctl console j1")

	out.Reset()
	require.NoError(t, runJob(ctx, []string{"j1", "/message"}))
	assert.Equal(t, "done\n", out.String())

	assert.Error(t, runJob(ctx, []string{"missing"}))
	assert.Error(t, runJob(ctx, nil))
}

func TestRunConsole(t *testing.T) {
	ctx, out := newTestContext(t, "tkn")
	require.NoError(t, runConsole(ctx, []string{"j1"}))
	assert.Equal(t, "console line\n", out.String())
}

func TestRunSystem(t *testing.T) {
	ctx, out := newTestContext(t, "tkn")
	require.NoError(t, runSystem(ctx, nil))
	assert.Contains(t, out.String(), "1.0.0")
	assert.Contains(t, out.String(), "io.hakbot.Nmap")
}

func TestUnauthorized(t *testing.T) {
	ctx, _ := newTestContext(t, "")
	err := runJobs(ctx, nil)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}
