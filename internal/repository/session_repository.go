package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/retail-pos-core/internal/model"
)

// SessionRepo persists login sessions. Sessions are deactivated, never
// deleted; only the SHA-256 hash of the refresh token is stored.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, access_expires_at, refresh_token_hash, refresh_expires_at, is_active, client_ip, user_agent)
		 VALUES (?,?,?,?,?,1,?,?)`,
		s.ID, s.UserID, s.AccessExpiresAt.UTC(), s.RefreshTokenHash, s.RefreshExpiresAt.UTC(),
		s.ClientIP, s.UserAgent)
	return err
}

// GetByID fetches a session by its UUID.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	var clientIP, userAgent sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, access_expires_at, refresh_token_hash, refresh_expires_at, is_active, client_ip, user_agent, created_at
		 FROM sessions WHERE id=? LIMIT 1`, id).
		Scan(&s.ID, &s.UserID, &s.AccessExpiresAt, &s.RefreshTokenHash, &s.RefreshExpiresAt,
			&s.IsActive, &clientIP, &userAgent, &s.CreatedAt)
	if err != nil {
		return model.Session{}, err
	}
	if clientIP.Valid {
		v := clientIP.String
		s.ClientIP = &v
	}
	if userAgent.Valid {
		v := userAgent.String
		s.UserAgent = &v
	}
	return s, nil
}

// GetByRefreshHash returns the active session holding the given refresh
// token hash, sql.ErrNoRows when none exists.
func (r *SessionRepo) GetByRefreshHash(ctx context.Context, hash string) (model.Session, error) {
	var s model.Session
	var clientIP, userAgent sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, access_expires_at, refresh_token_hash, refresh_expires_at, is_active, client_ip, user_agent, created_at
		 FROM sessions WHERE refresh_token_hash=? LIMIT 1`, hash).
		Scan(&s.ID, &s.UserID, &s.AccessExpiresAt, &s.RefreshTokenHash, &s.RefreshExpiresAt,
			&s.IsActive, &clientIP, &userAgent, &s.CreatedAt)
	if err != nil {
		return model.Session{}, err
	}
	if clientIP.Valid {
		v := clientIP.String
		s.ClientIP = &v
	}
	if userAgent.Valid {
		v := userAgent.String
		s.UserAgent = &v
	}
	return s, nil
}

// Deactivate marks one session inactive. Idempotent.
func (r *SessionRepo) Deactivate(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=0 WHERE id=?", id)
	return err
}

// DeactivateAllForUser marks every session of a user inactive.
func (r *SessionRepo) DeactivateAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=0 WHERE user_id=? AND is_active=1", userID)
	return err
}
