package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hakconsole/internal/repository"
)

func TestManagerOpenCreatesSession(t *testing.T) {
	env := newTestEnv(t)
	m := NewConsoleManager(env.repo, env.api, env.fmt, &ManagerConfig{SessionTTL: time.Hour})
	ctx := context.Background()

	c, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, c.ID())
	assert.Equal(t, ModeUnauthenticated, c.Mode())
	assert.True(t, c.State().LoginPrompt)

	// Anonymous sessions are neither stored nor bootstrapped.
	_, err = env.repo.Get(ctx, c.ID())
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Zero(t, env.backend.requestCount())

	again, err := m.Open(ctx, c.ID())
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Equal(t, 1, m.Len())
}

func TestManagerOpenUnknownIDIssuesNewSession(t *testing.T) {
	env := newTestEnv(t)
	m := NewConsoleManager(env.repo, env.api, env.fmt, nil)

	c, err := m.Open(context.Background(), "forged-id")
	require.NoError(t, err)
	assert.NotEqual(t, "forged-id", c.ID())
}

func TestManagerRestoresPersistedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := NewConsoleManager(env.repo, env.api, env.fmt, nil)
	c, err := first.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, c.Login(ctx, "admin", "secret"))

	// A fresh manager stands in for a restarted process.
	second := NewConsoleManager(env.repo, env.api, env.fmt, nil)
	restored, err := second.Open(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, c.ID(), restored.ID())
	assert.Equal(t, ModeReady, restored.Mode())

	got, ok := second.Get(c.ID())
	assert.True(t, ok)
	assert.Same(t, restored, got)
}

func TestManagerSweepDropsIdleConsoles(t *testing.T) {
	env := newTestEnv(t)
	m := NewConsoleManager(env.repo, env.api, env.fmt, &ManagerConfig{SessionTTL: time.Hour})
	ctx := context.Background()

	_, err := m.Open(ctx, "")
	require.NoError(t, err)

	loggedIn, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, loggedIn.Login(ctx, "admin", "secret"))

	dropped, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, dropped)

	m.now = func() time.Time { return time.Now().Add(30 * time.Minute) }
	dropped, err = m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	_, ok := m.Get(loggedIn.ID())
	assert.True(t, ok)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	dropped, err = m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Zero(t, m.Len())
}

func TestManagerStats(t *testing.T) {
	env := newTestEnv(t)
	m := NewConsoleManager(env.repo, env.api, env.fmt, nil)
	ctx := context.Background()

	_, err := m.Open(ctx, "")
	require.NoError(t, err)
	c, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, c.Login(ctx, "admin", "secret"))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Consoles)
	assert.Equal(t, int64(1), stats.Sessions)

	require.NoError(t, c.Logout(ctx))
	stats, err = m.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Sessions)
}
