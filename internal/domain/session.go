package domain

import "time"

// ConsoleSession persists the bearer token of a logged-in browser session.
// The browser only ever sees ID.
type ConsoleSession struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Token     string    `gorm:"type:text" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ConsoleSession.
func (ConsoleSession) TableName() string {
	return "console_sessions"
}

// Expired reports whether the session is past its expiry at now.
func (s *ConsoleSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
