package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hakconsole/internal/api/middleware"
	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/config"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/repository"
	"github.com/timmy/hakconsole/internal/service"
)

type backend struct {
	mu    sync.Mutex
	token string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	token := b.token
	b.mu.Unlock()

	switch r.URL.Path {
	case "/version":
		_, _ = io.WriteString(w, `{"application":"Hakbot","version":"1.0.0","timestamp":"2017-06-01"}`)
		return
	case "/v1/user/login":
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, token)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/providers":
		_, _ = io.WriteString(w, `[{"name":"Nmap","class":"io.hakbot.Nmap","console":true}]`)
	case "/v1/publishers":
		_, _ = io.WriteString(w, `[]`)
	case "/v1/user/hakmaster":
		_, _ = io.WriteString(w, `false`)
	case "/v1/job":
		_, _ = io.WriteString(w, `[
		  {"uuid":"j1","name":"alpha scan","provider":"io.hakbot.Nmap","publisher":null,"state":"COMPLETED","created":1500000000,"completed":1500000600},
		  {"uuid":"j2","name":"beta","provider":null,"publisher":null,"state":"IN_QUEUE","created":1500000100}]`)
	case "/v1/job/j1/message":
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "scan <finished>")
	case "/v1/job/j1/result":
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, "<nmaprun/>")
	case "/v1/console/job/j1":
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "console line")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type harness struct {
	backend *backend
	server  *httptest.Server
	http    *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := &backend{token: "tkn"}
	beSrv := httptest.NewServer(be)
	t.Cleanup(beSrv.Close)

	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver: "sqlite", Path: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1, AutoMigrate: true,
	})
	require.NoError(t, err)

	api := client.New(&client.Config{BaseURL: beSrv.URL, APIPrefix: "/v1", Timeout: 5 * time.Second})
	manager := service.NewConsoleManager(repository.NewSessionRepository(db, time.Hour), api, jobview.NewFormatter(time.UTC), nil)

	router, err := SetupRouter(manager, service.NewArchiveService(nil, nil), RouterConfig{
		Mode:     "test",
		PageSize: 10,
		CORS:     middleware.CORSConfig{AllowedOrigins: []string{"http://ui.test"}},
		Session:  middleware.SessionConfig{CookieName: "hakbot_session", TTL: time.Hour},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{backend: be, server: srv, http: &http.Client{Jar: jar}}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.http.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// csrfToken returns the token issued in the csrf_token cookie.
func (h *harness) csrfToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(h.server.URL)
	require.NoError(t, err)
	for _, cookie := range h.http.Jar.Cookies(u) {
		if cookie.Name == middleware.DefaultCSRFCookieName {
			return cookie.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func (h *harness) postAPI(t *testing.T, path, csrf string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, h.server.URL+path, nil)
	require.NoError(t, err)
	if csrf != "" {
		req.Header.Set(middleware.DefaultCSRFHeaderName, csrf)
	}
	resp, err := h.http.Do(req)
	require.NoError(t, err)
	return resp
}

func (h *harness) login(t *testing.T, password string) string {
	t.Helper()
	resp, err := h.http.PostForm(h.server.URL+"/login", url.Values{
		"username":   {"admin"},
		"password":   {password},
		"csrf_token": {h.csrfToken(t)},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return string(body)
}

func (h *harness) getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, body := h.get(t, path)
	require.NoError(t, json.Unmarshal([]byte(body), out), body)
	return resp.StatusCode
}

func TestHealthHasNoSession(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"sessions":0`)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))
}

func TestIndexShowsLoginPrompt(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/login"`)
	assert.NotContains(t, body, "Logout")

	u, _ := url.Parse(h.server.URL)
	names := map[string]bool{}
	for _, cookie := range h.http.Jar.Cookies(u) {
		names[cookie.Name] = true
	}
	assert.True(t, names["hakbot_session"])
	assert.True(t, names[middleware.DefaultCSRFCookieName])
	assert.Contains(t, body, `name="csrf_token" value="`+h.csrfToken(t)+`"`)
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")

	body := h.login(t, "wrong")
	assert.Contains(t, body, "Invalid username or password")

	body = h.login(t, "secret")
	assert.Contains(t, body, "alpha scan")
	assert.Contains(t, body, "Nmap")
	assert.Contains(t, body, "glyphicon-console")
	assert.Contains(t, body, "Logout")

	var state service.State
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/v1/session", &state))
	assert.Equal(t, service.ModeReady, state.Mode)
	assert.True(t, state.ShowLogout)
	assert.False(t, state.ShowAdmin)
}

func TestJobsAPI(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")
	h.login(t, "secret")

	var page struct {
		Total int           `json:"total"`
		Rows  []jobview.Row `json:"rows"`
	}
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/v1/jobs?sort=name&order=desc", &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "j2", page.Rows[0].UUID)
	assert.Equal(t, "10 min", page.Rows[1].Duration)

	var row jobview.Row
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/v1/jobs/j1", &row))
	assert.Equal(t, "Nmap", row.ProviderName)

	var errBody map[string]interface{}
	assert.Equal(t, http.StatusNotFound, h.getJSON(t, "/api/v1/jobs/nope", &errBody))

	resp := h.postAPI(t, "/api/v1/jobs/j1/archive?api=/result", h.csrfToken(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, service.ErrArchiveDisabled.Error(), errBody["error"])
}

func TestJobDetailPages(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")
	h.login(t, "secret")

	resp, body := h.get(t, "/jobs/j1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="sidebar"`)
	assert.Contains(t, body, "Nmap Console")

	resp, body = h.get(t, "/jobs/j1/text?api=/message&title=Message")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "scan &lt;finished&gt;")

	resp, body = h.get(t, "/jobs/j1/download?api=/result")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<nmaprun/>", body)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	resp, _ = h.get(t, "/jobs/j1/text?api=result")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.get(t, "/console/j1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "console line")

	resp, body = h.get(t, "/system")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "io.hakbot.Nmap")
}

func TestConsoleIconLinkFromJobPage(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")
	h.login(t, "secret")

	_, body := h.get(t, "/jobs/j1")
	m := regexp.MustCompile(`<a href="([^"]+)" title="View Console">`).FindStringSubmatch(body)
	require.NotNil(t, m, body)

	base, err := url.Parse(h.server.URL + "/jobs/j1")
	require.NoError(t, err)
	ref, err := url.Parse(m[1])
	require.NoError(t, err)
	target := base.ResolveReference(ref)
	assert.Equal(t, "/console/j1", target.Path)

	resp, body := h.get(t, target.Path)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "console line")
}

func TestPostsRequireCSRFToken(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")

	resp, err := h.http.PostForm(h.server.URL+"/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = h.http.PostForm(h.server.URL+"/login", url.Values{
		"username":   {"admin"},
		"password":   {"secret"},
		"csrf_token": {"forged"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Nothing reached the login handler.
	var state service.State
	h.getJSON(t, "/api/v1/session", &state)
	assert.False(t, state.HasToken)

	h.login(t, "secret")
	for _, path := range []string{"/logout", "/retry", "/jobs/j1/archive?api=/result"} {
		resp, err := h.http.Post(h.server.URL+path, "application/x-www-form-urlencoded", strings.NewReader(""))
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	resp = h.postAPI(t, "/api/v1/jobs/j1/archive?api=/result", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	h.getJSON(t, "/api/v1/session", &state)
	assert.True(t, state.HasToken)
}

func TestAnonymousVisitIsNotPersisted(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")
	h.get(t, "/")

	_, body := h.get(t, "/health")
	assert.Contains(t, body, `"sessions":0`)

	h.login(t, "secret")
	_, body = h.get(t, "/health")
	assert.Contains(t, body, `"sessions":1`)
}

func TestBackend401ReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/")
	h.login(t, "secret")

	h.backend.mu.Lock()
	h.backend.token = "rotated"
	h.backend.mu.Unlock()

	var errBody map[string]interface{}
	assert.Equal(t, http.StatusUnauthorized, h.getJSON(t, "/api/v1/jobs", &errBody))
	assert.Equal(t, string(service.ModeUnauthenticated), errBody["mode"])
	assert.NotEmpty(t, errBody["requestId"])

	var state service.State
	h.getJSON(t, "/api/v1/session", &state)
	assert.False(t, state.HasToken)
	assert.True(t, state.LoginPrompt)

	_, body := h.get(t, "/jobs/j1")
	assert.Contains(t, body, `action="/login"`)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, h.server.URL+"/api/v1/jobs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.test")
	resp, err := h.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://ui.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestParseTemplates(t *testing.T) {
	tmpl, err := parseTemplates()
	require.NoError(t, err)
	for _, name := range []string{"index", "text", "system", "error", "header", "footer"} {
		assert.NotNil(t, tmpl.Lookup(name), fmt.Sprintf("template %q", name))
	}
}
