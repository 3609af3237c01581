package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/domain"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/registry"
	"golang.org/x/sync/errgroup"
)

// Mode is the coarse state of a console session.
type Mode string

const (
	ModeUnauthenticated Mode = "unauthenticated"
	ModeLoading         Mode = "loading"
	ModeReady           Mode = "ready"
	ModeStartupFailed   Mode = "startup_failed"
)

// SessionStore persists the bearer tokens of logged-in sessions so they
// survive a restart. Sessions without a token are not stored.
type SessionStore interface {
	Save(ctx context.Context, id, token string) error
	Get(ctx context.Context, id string) (*domain.ConsoleSession, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// State is a point-in-time view of a console, used to render pages.
type State struct {
	SessionID    string       `json:"sessionId"`
	Mode         Mode         `json:"mode"`
	LoginPrompt  bool         `json:"loginPrompt"`
	LoginError   string       `json:"loginError,omitempty"`
	StartupError string       `json:"startupError,omitempty"`
	HasToken     bool         `json:"hasToken"`
	Hakmaster    bool         `json:"hakmaster"`
	ShowAdmin    bool         `json:"showAdmin"`
	ShowLogout   bool         `json:"showLogout"`
	SelectedJob  string       `json:"selectedJob,omitempty"`
	About        domain.About `json:"about"`
}

// SystemInfo is the content of the system information view.
type SystemInfo struct {
	About      domain.About              `json:"about"`
	Providers  []domain.PluginDescriptor `json:"providers"`
	Publishers []domain.PluginDescriptor `json:"publishers"`
	Hakmaster  bool                      `json:"hakmaster"`
}

// TableQuery selects a page of the jobs table.
type TableQuery struct {
	Search string
	Sort   string
	Desc   bool
	Offset int
	Limit  int
}

// TablePage is one page of enriched job rows.
type TablePage struct {
	Total int           `json:"total"`
	Rows  []jobview.Row `json:"rows"`
}

// Console is the controller for one browser session. It owns the session's
// token, registry snapshot and row selection, and is the status observer of
// every backend call made on the session's behalf.
type Console struct {
	id        string
	store     SessionStore
	api       *client.Client
	formatter *jobview.Formatter

	mu           sync.RWMutex
	mode         Mode
	token        string
	loginPrompt  bool
	loginError   string
	startupError string
	about        domain.About
	registry     *registry.Registry
	hakmaster    bool
	selected     string
	// generation changes whenever the token is dropped, so a bootstrap that
	// started under an older token cannot publish its results.
	generation uint64
	lastSeen   time.Time
}

// NewConsole creates a console for one browser session.
// Parameters:
//   - id: session id carried by the browser cookie.
//   - token: bearer token restored from the store, or "" when logged out.
//   - store: session store the token is saved to and deleted from.
//   - api: backend client without session state; the console binds itself
//     as token source and status observer.
//   - formatter: row formatter for the jobs table.
//
// Returns:
//   - *Console: a console in Unauthenticated mode until Bootstrap runs.
func NewConsole(id, token string, store SessionStore, api *client.Client, formatter *jobview.Formatter) *Console {
	c := &Console{
		id:          id,
		store:       store,
		formatter:   formatter,
		mode:        ModeUnauthenticated,
		token:       token,
		loginPrompt: token == "",
		registry:    registry.Empty(),
		lastSeen:    time.Now(),
	}
	c.api = api.WithSession(c, c)
	return c
}

// ID returns the session id the console belongs to.
func (c *Console) ID() string {
	return c.id
}

// Token implements client.TokenSource.
func (c *Console) Token(context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, nil
}

// ObserveStatus implements client.StatusObserver. A 200 dismisses the login
// prompt. A 401 from any endpoint drops the token and the selected job and
// returns the console to Unauthenticated.
func (c *Console) ObserveStatus(ctx context.Context, status int) {
	switch status {
	case http.StatusOK:
		c.mu.Lock()
		c.loginPrompt = false
		c.mu.Unlock()
	case http.StatusUnauthorized:
		c.mu.Lock()
		hadToken := c.token != ""
		c.token = ""
		c.selected = ""
		c.hakmaster = false
		c.mode = ModeUnauthenticated
		c.loginPrompt = true
		c.generation++
		c.mu.Unlock()

		if hadToken {
			if err := c.store.Delete(ctx, c.id); err != nil {
				c.log(ctx).WithError(err).Warn("Failed to clear session token after 401")
			}
			c.log(ctx).Info("Session token rejected by backend")
		}
	}
}

func (c *Console) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldSessionID: c.id,
		logger.FieldComponent: "console",
	})
}

// Bootstrap issues the about, providers, publishers and hakmaster fetches
// concurrently and settles the console mode once all have returned:
// Ready when all succeed, Unauthenticated when any was refused with 401,
// StartupFailed otherwise.
func (c *Console) Bootstrap(ctx context.Context) Mode {
	c.mu.Lock()
	c.mode = ModeLoading
	c.startupError = ""
	gen := c.generation
	c.mu.Unlock()

	start := time.Now()
	var (
		about      domain.About
		providers  []domain.PluginDescriptor
		publishers []domain.PluginDescriptor
		hakmaster  bool
		errs       [4]error
	)

	// No derived context: a fast failure must not cancel a slower fetch
	// whose 401 decides the outcome.
	var g errgroup.Group
	g.Go(func() error {
		about, errs[0] = c.api.About(ctx)
		return errs[0]
	})
	g.Go(func() error {
		providers, errs[1] = c.api.Providers(ctx)
		return errs[1]
	})
	g.Go(func() error {
		publishers, errs[2] = c.api.Publishers(ctx)
		return errs[2]
	})
	g.Go(func() error {
		hakmaster, errs[3] = c.api.IsHakmaster(ctx)
		return errs[3]
	})
	firstErr := g.Wait()

	unauthorized := false
	for _, err := range errs {
		if errors.Is(err, client.ErrUnauthorized) {
			unauthorized = true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// The token was dropped while the fetches were in flight.
		return c.mode
	}

	switch {
	case unauthorized:
		c.mode = ModeUnauthenticated
		c.loginPrompt = true
	case firstErr != nil:
		c.mode = ModeStartupFailed
		c.startupError = firstErr.Error()
		c.log(ctx).WithError(firstErr).Error("Console startup failed")
	default:
		reg := registry.New(providers, publishers)
		for _, kind := range []domain.PluginKind{domain.PluginProvider, domain.PluginPublisher} {
			if dups := reg.Duplicates(kind); len(dups) > 0 {
				c.log(ctx).Warnf("Backend reports duplicate %s classes, first match wins: %s",
					kind, strings.Join(dups, ", "))
			}
		}
		c.about = about
		c.registry = reg
		c.hakmaster = hakmaster
		c.mode = ModeReady
		c.loginPrompt = false
	}

	logger.With(logger.Fields{
		logger.FieldSessionID: c.id,
		logger.FieldMode:      string(c.mode),
	}).WithDuration(start).Info(ctx, "Console bootstrap finished")

	return c.mode
}

// Login exchanges credentials for a token and bootstraps the console with
// it. Rejected credentials leave the console Unauthenticated with an inline
// message and return client.ErrInvalidCredentials.
func (c *Console) Login(ctx context.Context, username, password string) error {
	token, err := c.api.Login(ctx, username, password)
	if err != nil {
		c.mu.Lock()
		if errors.Is(err, client.ErrInvalidCredentials) {
			c.loginError = "Invalid username or password"
		} else {
			c.loginError = "Login failed: " + err.Error()
		}
		c.loginPrompt = true
		c.mu.Unlock()
		return err
	}

	if err := c.store.Save(ctx, c.id, token); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.loginError = ""
	c.loginPrompt = false
	c.mu.Unlock()

	c.log(ctx).Info("Login succeeded")
	c.Bootstrap(ctx)
	return nil
}

// Logout drops the token and every piece of state derived from it.
func (c *Console) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mode = ModeUnauthenticated
	c.loginPrompt = true
	c.loginError = ""
	c.startupError = ""
	c.about = domain.About{}
	c.registry = registry.Empty()
	c.hakmaster = false
	c.selected = ""
	c.generation++
	c.mu.Unlock()

	return c.store.Delete(ctx, c.id)
}

// State returns a snapshot of the console for rendering.
func (c *Console) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return State{
		SessionID:    c.id,
		Mode:         c.mode,
		LoginPrompt:  c.loginPrompt || c.mode == ModeUnauthenticated,
		LoginError:   c.loginError,
		StartupError: c.startupError,
		HasToken:     c.token != "",
		Hakmaster:    c.hakmaster,
		ShowAdmin:    c.hakmaster && c.mode == ModeReady,
		ShowLogout:   c.token != "",
		SelectedJob:  c.selected,
		About:        c.about,
	}
}

// Mode returns the current console mode.
func (c *Console) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Registry returns the plugin registry snapshot of the last successful
// bootstrap.
func (c *Console) Registry() *registry.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

// IsHakmaster reports whether admin affordances may be shown.
func (c *Console) IsHakmaster() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hakmaster && c.mode == ModeReady
}

// SystemInfo returns the about descriptor and plugin lists.
func (c *Console) SystemInfo() (SystemInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mode != ModeReady {
		return SystemInfo{}, ErrNotReady
	}
	return SystemInfo{
		About:      c.about,
		Providers:  c.registry.Providers(),
		Publishers: c.registry.Publishers(),
		Hakmaster:  c.hakmaster,
	}, nil
}

// JobRows fetches the job listing and returns the requested page of
// enriched, filtered and sorted rows.
func (c *Console) JobRows(ctx context.Context, q TableQuery) (TablePage, error) {
	rows, err := c.allRows(ctx)
	if err != nil {
		return TablePage{}, err
	}

	rows = jobview.FilterRows(rows, q.Search)
	if q.Sort != "" {
		jobview.SortRows(rows, q.Sort, q.Desc)
	}
	return TablePage{
		Total: len(rows),
		Rows:  jobview.Page(rows, q.Offset, q.Limit),
	}, nil
}

func (c *Console) allRows(ctx context.Context) ([]jobview.Row, error) {
	if c.Mode() != ModeReady {
		return nil, ErrNotReady
	}
	jobs, err := c.api.Jobs(ctx)
	if err != nil {
		return nil, err
	}
	return c.formatter.Enrich(jobs, c.Registry()), nil
}

// SelectJob records jobUUID as the displayed job and returns its row.
func (c *Console) SelectJob(ctx context.Context, jobUUID string) (jobview.Row, error) {
	rows, err := c.allRows(ctx)
	if err != nil {
		return jobview.Row{}, err
	}
	for _, row := range rows {
		if row.UUID == jobUUID {
			c.mu.Lock()
			c.selected = jobUUID
			c.mu.Unlock()
			return row, nil
		}
	}
	return jobview.Row{}, ErrJobNotFound
}

// SelectedJob returns the uuid of the displayed job, or "".
func (c *Console) SelectedJob() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

func (c *Console) selectedOrErr() (string, error) {
	if c.Mode() != ModeReady {
		return "", ErrNotReady
	}
	id := c.SelectedJob()
	if id == "" {
		return "", ErrNoJobSelected
	}
	return id, nil
}

// JobText fetches a textual detail of the selected job.
func (c *Console) JobText(ctx context.Context, suffix string) (string, error) {
	id, err := c.selectedOrErr()
	if err != nil {
		return "", err
	}
	return c.api.JobText(logger.SetJobUUID(ctx, id), id, suffix)
}

// OpenArtifact opens a binary detail of the selected job for streaming.
func (c *Console) OpenArtifact(ctx context.Context, suffix string) (*client.Artifact, error) {
	id, err := c.selectedOrErr()
	if err != nil {
		return nil, err
	}
	return c.api.JobArtifact(logger.SetJobUUID(ctx, id), id, suffix)
}

// ConsoleText fetches the provider console output of jobUUID.
func (c *Console) ConsoleText(ctx context.Context, jobUUID string) (string, error) {
	if c.Mode() != ModeReady {
		return "", ErrNotReady
	}
	return c.api.ConsoleText(logger.SetJobUUID(ctx, jobUUID), jobUUID)
}

func (c *Console) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Console) idleSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeen
}

func (c *Console) hasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}
