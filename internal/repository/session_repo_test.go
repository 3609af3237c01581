package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/hakconsole/internal/config"
)

func newTestRepo(t *testing.T, ttl time.Duration) *SessionRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewSessionRepository(db, ttl)
}

func TestSessionSaveAndDelete(t *testing.T) {
	repo := newTestRepo(t, time.Hour)
	ctx := context.Background()

	_, err := repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.Save(ctx, "s1", "bearer-1"))
	session, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "bearer-1", session.Token)

	// A second login on the same session replaces the token in place.
	require.NoError(t, repo.Save(ctx, "s1", "bearer-2"))
	session, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "bearer-2", session.Token)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Delete(ctx, "s1"))
	require.NoError(t, repo.Delete(ctx, "missing"))
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpiredSessions(t *testing.T) {
	repo := newTestRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "old", "a"))
	repo.ttl = time.Hour
	require.NoError(t, repo.Save(ctx, "fresh", "b"))

	start := time.Now()
	repo.now = func() time.Time { return start.Add(10 * time.Minute) }

	_, err := repo.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	removed, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Touch pushes expiry one ttl past the (shifted) clock.
	require.NoError(t, repo.Touch(ctx, "fresh"))
	repo.now = func() time.Time { return start.Add(65 * time.Minute) }
	_, err = repo.Get(ctx, "fresh")
	assert.NoError(t, err)
}
