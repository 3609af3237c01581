package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/hakconsole/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionNotFound is returned when a session ID is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists the bearer tokens of logged-in console
// sessions. Sessions without a token are never stored.
type SessionRepository struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository.
// Parameters:
//   - db: gorm handle with the console_sessions table migrated.
//   - ttl: lifetime of a session after its last save or touch.
//
// Returns:
//   - *SessionRepository: repository ready for use.
func NewSessionRepository(db *gorm.DB, ttl time.Duration) *SessionRepository {
	return &SessionRepository{db: db, ttl: ttl, now: time.Now}
}

// Save stores token for session id, creating the session or replacing its
// token, and restarts its expiry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: session id presented by the browser.
//   - token: bearer token issued by the backend.
//
// Returns:
//   - error: non-nil if the upsert fails.
func (r *SessionRepository) Save(ctx context.Context, id, token string) error {
	session := &domain.ConsoleSession{
		ID:        id,
		Token:     token,
		ExpiresAt: r.expiry(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
	}).Create(session).Error
}

// Get retrieves a session by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: session id.
//
// Returns:
//   - *domain.ConsoleSession: the stored session.
//   - error: ErrSessionNotFound when id is unknown or expired.
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ConsoleSession, error) {
	var session domain.ConsoleSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(r.now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Touch restarts the expiry of session id. Unknown ids are ignored.
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.ConsoleSession{}).
		Where("id = ?", id).
		Update("expires_at", r.expiry()).Error
}

// Delete removes session id together with its token. Unknown ids are
// ignored.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.ConsoleSession{}, "id = ?", id).Error
}

// PurgeExpired deletes all sessions past expiry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - int64: number of sessions removed.
//   - error: non-nil if the delete fails.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", r.now().UTC()).
		Delete(&domain.ConsoleSession{})
	return result.RowsAffected, result.Error
}

// Count returns the number of stored sessions, expired ones included until
// the next purge.
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ConsoleSession{}).Count(&count).Error
	return count, err
}

func (r *SessionRepository) expiry() time.Time {
	return r.now().UTC().Add(r.ttl)
}
