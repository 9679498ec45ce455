package model

import "time"

// Session mirrors the 'sessions' table. A session is created on
// successful login and deactivated, never deleted, on logout. A
// deactivated session must not authenticate again even when its tokens
// have not technically expired.
type Session struct {
	ID               string // UUID, also carried in access-token claims
	UserID           uint64
	AccessExpiresAt  time.Time
	RefreshTokenHash string // SHA-256 of the raw refresh token; raw value is never stored
	RefreshExpiresAt time.Time
	IsActive         bool
	ClientIP         *string
	UserAgent        *string
	CreatedAt        time.Time
}

// Usable reports whether the session may still authenticate an access
// token at the given instant.
func (s *Session) Usable(now time.Time) bool {
	return s.IsActive && now.Before(s.AccessExpiresAt)
}

// RefreshUsable reports whether the session's refresh token may still be
// exchanged at the given instant.
func (s *Session) RefreshUsable(now time.Time) bool {
	return s.IsActive && now.Before(s.RefreshExpiresAt)
}
