package model

import "time"

// Role values stored on users.role. Sales require at least cashier.
const (
	RoleCashier = "CASHIER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// ValidRole reports whether r is a role this system can resolve. Logins
// for accounts with an unresolvable role are rejected regardless of
// password correctness.
func ValidRole(r string) bool {
	switch r {
	case RoleCashier, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// UserAccount mirrors the 'users' table. Lockout bookkeeping lives here
// so that it survives process restarts: the backend, not process memory,
// is the source of truth for failed attempts and lock windows.
type UserAccount struct {
	ID                  uint64
	Username            string
	PasswordHash        string
	Role                string
	IsActive            bool
	MustChangePassword  bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// LockedAt reports whether the account is locked at the given instant.
func (u *UserAccount) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LockRemaining returns how much of the lock window is left at now,
// zero when the account is not locked.
func (u *UserAccount) LockRemaining(now time.Time) time.Duration {
	if !u.LockedAt(now) {
		return 0
	}
	return u.LockedUntil.Sub(now)
}
