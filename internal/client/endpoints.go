package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/timmy/hakconsole/internal/domain"
)

// Backend endpoint paths. PathVersion is served from the base URL, the
// rest sit under the API prefix.
const (
	PathVersion    = "/version"
	PathProviders  = "/providers"
	PathPublishers = "/publishers"
	PathHakmaster  = "/user/hakmaster"
	PathLogin      = "/user/login"
	PathJob        = "/job"
	PathConsoleJob = "/console/job"
)

// About fetches the application descriptor.
func (c *Client) About(ctx context.Context) (domain.About, error) {
	var about domain.About
	err := c.getJSON(ctx, c.rootURL(PathVersion), PathVersion, &about)
	return about, err
}

// Providers fetches the provider plugins installed on the backend.
func (c *Client) Providers(ctx context.Context) ([]domain.PluginDescriptor, error) {
	var plugins []domain.PluginDescriptor
	err := c.getJSON(ctx, c.apiURL(PathProviders), PathProviders, &plugins)
	return plugins, err
}

// Publishers fetches the publisher plugins installed on the backend.
func (c *Client) Publishers(ctx context.Context) ([]domain.PluginDescriptor, error) {
	var plugins []domain.PluginDescriptor
	err := c.getJSON(ctx, c.apiURL(PathPublishers), PathPublishers, &plugins)
	return plugins, err
}

// IsHakmaster reports whether the session's user has the admin role.
func (c *Client) IsHakmaster(ctx context.Context) (bool, error) {
	var hakmaster bool
	err := c.getJSON(ctx, c.apiURL(PathHakmaster), PathHakmaster, &hakmaster)
	return hakmaster, err
}

// Jobs fetches the job listing.
func (c *Client) Jobs(ctx context.Context) ([]domain.JobRecord, error) {
	var jobs []domain.JobRecord
	err := c.getJSON(ctx, c.apiURL(PathJob), PathJob, &jobs)
	return jobs, err
}

// Login exchanges credentials for a bearer token. The login request never
// carries a token. A 401 is reported as ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	req, err := c.request(ctx, c.http, false)
	if err != nil {
		return "", err
	}
	req.SetFormData(map[string]string{
		"username": username,
		"password": password,
	})

	resp, err := c.execute(ctx, req, http.MethodPost, c.apiURL(PathLogin), PathLogin, false)
	if err != nil {
		if err == ErrUnauthorized {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	token := strings.TrimSpace(resp.String())
	if strings.HasPrefix(token, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(token), &unquoted); err == nil {
			token = unquoted
		}
	}
	if token == "" {
		return "", fmt.Errorf("backend: login returned an empty token")
	}
	return token, nil
}

// JobText fetches a textual job detail such as a log or result, selected
// by suffix (for example "/console" or "/result").
func (c *Client) JobText(ctx context.Context, jobUUID, suffix string) (string, error) {
	path, err := jobPath(jobUUID, suffix)
	if err != nil {
		return "", err
	}
	req, err := c.request(ctx, c.http, true)
	if err != nil {
		return "", err
	}
	req.SetHeader("Accept", "text/plain")

	resp, err := c.execute(ctx, req, http.MethodGet, c.apiURL(path), PathJob+"/{uuid}"+suffix, false)
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// ConsoleText fetches the provider console output of a job.
func (c *Client) ConsoleText(ctx context.Context, jobUUID string) (string, error) {
	if jobUUID == "" {
		return "", fmt.Errorf("backend: job uuid is required")
	}
	req, err := c.request(ctx, c.http, true)
	if err != nil {
		return "", err
	}
	req.SetHeader("Accept", "text/plain")

	path := PathConsoleJob + "/" + url.PathEscape(jobUUID)
	resp, err := c.execute(ctx, req, http.MethodGet, c.apiURL(path), PathConsoleJob+"/{uuid}", false)
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// Artifact is a streamed binary job detail. The caller must close Body.
type Artifact struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

// JobArtifact opens a binary job detail selected by suffix.
func (c *Client) JobArtifact(ctx context.Context, jobUUID, suffix string) (*Artifact, error) {
	path, err := jobPath(jobUUID, suffix)
	if err != nil {
		return nil, err
	}
	req, err := c.request(ctx, c.download, true)
	if err != nil {
		return nil, err
	}
	req.SetDoNotParseResponse(true)

	resp, err := c.execute(ctx, req, http.MethodGet, c.apiURL(path), PathJob+"/{uuid}"+suffix, true)
	if err != nil {
		return nil, err
	}

	raw := resp.RawResponse
	contentType := raw.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Artifact{
		Body:          raw.Body,
		ContentType:   contentType,
		ContentLength: raw.ContentLength,
		Filename:      artifactFilename(raw.Header.Get("Content-Disposition"), jobUUID, suffix),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL, endpoint string, out interface{}) error {
	req, err := c.request(ctx, c.http, true)
	if err != nil {
		return err
	}
	req.SetHeader("Accept", "application/json").
		ForceContentType("application/json").
		SetResult(out)

	_, err = c.execute(ctx, req, http.MethodGet, fullURL, endpoint, false)
	return err
}

// jobPath validates suffix and builds /job/{uuid}{suffix}.
func jobPath(jobUUID, suffix string) (string, error) {
	if jobUUID == "" {
		return "", fmt.Errorf("backend: job uuid is required")
	}
	if err := ValidateSuffix(suffix); err != nil {
		return "", err
	}
	return PathJob + "/" + url.PathEscape(jobUUID) + suffix, nil
}

// ValidateSuffix rejects job detail suffixes that are not a plain path
// below the job, such as "result", "/../user" or "/x?y". Empty is allowed.
func ValidateSuffix(suffix string) error {
	if suffix == "" {
		return nil
	}
	if !strings.HasPrefix(suffix, "/") || strings.ContainsAny(suffix, "?#\\") || strings.Contains(suffix, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSuffix, suffix)
	}
	return nil
}

func artifactFilename(disposition, jobUUID, suffix string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	name := jobUUID + strings.ReplaceAll(suffix, "/", "-")
	return strings.TrimSuffix(name, "-")
}
