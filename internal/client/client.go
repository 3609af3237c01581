package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/hakconsole/internal/logger"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means none is held.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StatusObserver is told the HTTP status of every backend response. It is
// the single place where 200 and 401 side effects hang off.
type StatusObserver interface {
	ObserveStatus(ctx context.Context, status int)
}

// Config holds configuration for the backend client.
type Config struct {
	BaseURL   string
	APIPrefix string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the Hakbot REST API.
type Client struct {
	http     *resty.Client
	download *resty.Client
	baseURL  string
	prefix   string
	tokens   TokenSource
	observer StatusObserver
}

// New creates a client without session state. Use WithSession to bind a
// token source and status observer.
// Parameters:
//   - cfg: backend base URL, API prefix and timeout.
//
// Returns:
//   - *Client: unauthenticated client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	// Artifact downloads stream and are bounded by the request context only.
	download := resty.New()
	if cfg.UserAgent != "" {
		download.SetHeader("User-Agent", cfg.UserAgent)
	}

	prefix := strings.TrimSuffix(cfg.APIPrefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	return &Client{
		http:     client,
		download: download,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		prefix:   prefix,
	}
}

// WithSession returns a copy of c that authenticates with tokens and reports
// statuses to observer. Either may be nil. The copy shares connections with c.
func (c *Client) WithSession(tokens TokenSource, observer StatusObserver) *Client {
	cp := *c
	cp.tokens = tokens
	cp.observer = observer
	return &cp
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) rootURL(path string) string {
	return c.baseURL + path
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + c.prefix + path
}

// request prepares a request bound to ctx, attaching the bearer token when
// auth is set and a token is held.
func (c *Client) request(ctx context.Context, rc *resty.Client, auth bool) (*resty.Request, error) {
	req := rc.R().SetContext(ctx)
	if !auth || c.tokens == nil {
		return req, nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	return req, nil
}

// execute sends req and routes the response through the observer before
// translating non-2xx statuses into errors. stream must match the request's
// SetDoNotParseResponse setting; on error the raw body is closed.
func (c *Client) execute(ctx context.Context, req *resty.Request, method, url, endpoint string, stream bool) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.Execute(method, url)
	if err != nil {
		logger.With(logger.Fields{logger.FieldEndpoint: endpoint}).WithDuration(start).
			Warn(ctx, "Backend request failed: %v", err)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	status := resp.StatusCode()
	logger.With(logger.Fields{
		logger.FieldEndpoint: endpoint,
		logger.FieldStatus:   status,
	}).WithDuration(start).Debug(ctx, "Backend request completed: method=%s", method)

	if c.observer != nil {
		c.observer.ObserveStatus(ctx, status)
	}

	if status >= 200 && status < 300 {
		return resp, nil
	}

	body := ""
	if stream {
		if raw := resp.RawBody(); raw != nil {
			b, _ := io.ReadAll(io.LimitReader(raw, maxErrorBody))
			raw.Close()
			body = string(b)
		}
	} else {
		body = resp.String()
	}

	if status == http.StatusUnauthorized {
		return resp, ErrUnauthorized
	}
	return resp, newStatusError(method, endpoint, status, body)
}

const maxErrorBody = 512

func newStatusError(method, endpoint string, status int, body string) *StatusError {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Method: method, Endpoint: endpoint, StatusCode: status, Body: body}
}
