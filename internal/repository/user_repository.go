package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/retail-pos-core/internal/model"
)

// UserRepo provides access to the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, username, password_hash, role, is_active, must_change_password,
	failed_login_attempts, locked_until, last_login_at, created_at, updated_at`

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash, role string) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role) VALUES (?,?,?)",
		username, passwordHash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.UserAccount, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// RecordFailedLogin persists the new failed-attempt count and, when the
// threshold was reached, the lock window. Lockout state lives in the
// backend so it holds across process restarts and concurrent workers.
func (r *UserRepo) RecordFailedLogin(ctx context.Context, id uint64, attempts int, lockedUntil *time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts=?, locked_until=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		attempts, nullTime(lockedUntil), id)
	return err
}

// RecordSuccessfulLogin resets the failure counter, clears any lock and
// stamps last_login_at.
func (r *UserRepo) RecordSuccessfulLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts=0, locked_until=NULL, last_login_at=UTC_TIMESTAMP(), updated_at=UTC_TIMESTAMP() WHERE id=?",
		id)
	return err
}

// UpdatePassword stores a new hash and clears the must-change flag.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, must_change_password=0, updated_at=UTC_TIMESTAMP() WHERE id=?",
		passwordHash, id)
	return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.UserAccount, error) {
	var u model.UserAccount
	var lockedUntil, lastLoginAt sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.MustChangePassword, &u.FailedLoginAttempts, &lockedUntil, &lastLoginAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.UserAccount{}, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		u.LockedUntil = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time.UTC()
		u.LastLoginAt = &t
	}
	return u, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
