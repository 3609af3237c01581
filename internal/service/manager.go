package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/repository"
)

// anonymousIdle is how long a console without a token is kept in memory
// after its last request.
const anonymousIdle = 15 * time.Minute

// ManagerConfig holds configuration for the console manager.
type ManagerConfig struct {
	SessionTTL time.Duration
}

// ConsoleManager owns the live consoles, one per browser session.
type ConsoleManager struct {
	store     SessionStore
	api       *client.Client
	formatter *jobview.Formatter
	ttl       time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	consoles map[string]*Console
}

// NewConsoleManager creates a new console manager.
// Parameters:
//   - store: session store holding the tokens of logged-in sessions.
//   - api: backend client without session state; each console binds its own.
//   - formatter: row formatter shared by all consoles.
//   - cfg: manager configuration; SessionTTL bounds how long an idle
//     logged-in console stays in memory.
//
// Returns:
//   - *ConsoleManager: initialized manager with no live consoles.
func NewConsoleManager(store SessionStore, api *client.Client, formatter *jobview.Formatter, cfg *ManagerConfig) *ConsoleManager {
	ttl := 8 * time.Hour
	if cfg != nil && cfg.SessionTTL > 0 {
		ttl = cfg.SessionTTL
	}
	return &ConsoleManager{
		store:     store,
		api:       api,
		formatter: formatter,
		ttl:       ttl,
		now:       time.Now,
		consoles:  make(map[string]*Console),
	}
}

// Open returns the console for session id. A console held in memory is
// reused; otherwise a stored token is restored and the console bootstrapped.
// Unknown, expired and empty ids get a fresh session that lives in memory
// only and makes no backend calls until the user logs in. The returned
// console's ID is the session id the browser must present from now on.
func (m *ConsoleManager) Open(ctx context.Context, id string) (*Console, error) {
	if id != "" {
		m.mu.RLock()
		c, ok := m.consoles[id]
		m.mu.RUnlock()
		if ok {
			m.touch(ctx, c)
			return c, nil
		}
	}

	token := ""
	if id != "" {
		session, err := m.store.Get(ctx, id)
		switch {
		case err == nil:
			token = session.Token
		case errors.Is(err, repository.ErrSessionNotFound):
			id = ""
		default:
			return nil, err
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	c := NewConsole(id, token, m.store, m.api, m.formatter)

	m.mu.Lock()
	if existing, ok := m.consoles[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.consoles[id] = c
	m.mu.Unlock()

	if token != "" {
		ctx = logger.SetSessionID(ctx, id)
		logger.CtxInfo(ctx, "Restored console session")
		c.Bootstrap(ctx)
	}
	return c, nil
}

// Get returns the live console for id, if any.
func (m *ConsoleManager) Get(id string) (*Console, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.consoles[id]
	return c, ok
}

// Len returns the number of live consoles.
func (m *ConsoleManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.consoles)
}

func (m *ConsoleManager) touch(ctx context.Context, c *Console) {
	now := m.now()
	// Refresh the stored expiry at most once a minute per console.
	if now.Sub(c.idleSince()) < time.Minute {
		return
	}
	c.touch(now)
	if !c.hasToken() {
		return
	}
	if err := m.store.Touch(ctx, c.ID()); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to extend console session")
	}
}

// Sweep drops consoles idle for longer than the session TTL, or than
// anonymousIdle for consoles without a token, and purges expired sessions
// from the store.
func (m *ConsoleManager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	cutoff := now.Add(-m.ttl)
	anonymousCutoff := now.Add(-anonymousIdle)

	m.mu.Lock()
	dropped := 0
	for id, c := range m.consoles {
		limit := cutoff
		if !c.hasToken() {
			limit = anonymousCutoff
		}
		if c.idleSince().Before(limit) {
			delete(m.consoles, id)
			dropped++
		}
	}
	m.mu.Unlock()

	purged, err := m.store.PurgeExpired(ctx)
	if err != nil {
		return dropped, err
	}
	if dropped > 0 || purged > 0 {
		logger.With(logger.Fields{logger.FieldCount: dropped}).
			Info(ctx, "Swept idle consoles, purged %d expired sessions", purged)
	}
	return dropped, nil
}

// Stats reports the live consoles and the logged-in sessions on record.
type Stats struct {
	Consoles int   `json:"consoles"`
	Sessions int64 `json:"sessions"`
}

// Stats returns the current console and stored session counts.
func (m *ConsoleManager) Stats(ctx context.Context) (Stats, error) {
	sessions, err := m.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Consoles: m.Len(), Sessions: sessions}, nil
}

// Run sweeps every interval until ctx is done.
func (m *ConsoleManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				logger.CtxWarn(ctx, "Session sweep failed: %v", err)
			}
		}
	}
}
