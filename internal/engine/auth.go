package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/retail-pos-core/internal/config"
	"github.com/iliyamo/retail-pos-core/internal/database"
	"github.com/iliyamo/retail-pos-core/internal/fault"
	"github.com/iliyamo/retail-pos-core/internal/model"
	"github.com/iliyamo/retail-pos-core/internal/repository"
	"github.com/iliyamo/retail-pos-core/internal/utils"
)

// AuthEngine implements credential verification with brute-force
// lockout, token issuance and session lifecycle. All lockout and session
// state lives in the backend; in-process memory holds nothing that must
// survive a restart or be shared across workers.
type AuthEngine struct {
	pool   *database.Pool
	cfg    config.Config
	logger *zap.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewAuthEngine builds an auth engine over the given pool.
func NewAuthEngine(pool *database.Pool, cfg config.Config, logger *zap.Logger) *AuthEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthEngine{
		pool:   pool,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// UserProfile is the caller-visible identity attached to a verified
// token or a successful login.
type UserProfile struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResult carries the issued token pair and the user profile.
type LoginResult struct {
	User               UserProfile
	Access             utils.AccessToken
	Refresh            utils.RefreshToken
	SessionID          string
	MustChangePassword bool
}

// Login verifies credentials and issues a token pair. Every outcome,
// success or failure, is audited with its precise reason; the caller
// only ever sees ErrInvalidCredentials or ErrAccountLocked, so usernames
// cannot be enumerated.
func (e *AuthEngine) Login(ctx context.Context, username, password string, clientIP, userAgent *string) (LoginResult, error) {
	db, err := e.pool.Acquire()
	if err != nil {
		return LoginResult{}, err
	}
	users := repository.NewUserRepo(db)
	now := e.now()

	reject := func(actorID *uint64, reason string, outward error) (LoginResult, error) {
		appendAudit(ctx, db, e.logger, model.AuditEntry{
			ActorID:      actorID,
			Action:       model.AuditLogin,
			Description:  "login attempt for " + username,
			Success:      false,
			ErrorMessage: strPtr(reason),
			ClientIP:     clientIP,
			UserAgent:    userAgent,
		})
		return LoginResult{}, outward
	}

	u, err := users.GetByUsername(ctx, username)
	if err == sql.ErrNoRows {
		return reject(nil, "user not found", ErrInvalidCredentials)
	}
	if err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "loading user", err)
	}

	// A locked account rejects every attempt until the window elapses.
	// The attempt is audited but does not extend the lock.
	if u.LockedAt(now) {
		minutes := int(u.LockRemaining(now).Minutes()) + 1
		return reject(&u.ID, "account locked",
			fault.Wrap(fault.KindAuthentication,
				fmt.Sprintf("account is locked; try again in %d minute(s)", minutes),
				ErrAccountLocked))
	}

	if !u.IsActive {
		return reject(&u.ID, "account inactive", ErrInvalidCredentials)
	}
	if !model.ValidRole(u.Role) {
		return reject(&u.ID, "unresolvable role "+u.Role, ErrInvalidCredentials)
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		attempts := u.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		reason := fmt.Sprintf("wrong password (attempt %d)", attempts)
		if attempts >= e.cfg.LockoutAfter {
			t := now.Add(e.cfg.LockoutFor)
			lockedUntil = &t
			reason = fmt.Sprintf("wrong password (attempt %d), account locked until %s",
				attempts, t.Format(time.RFC3339))
		}
		if err := users.RecordFailedLogin(ctx, u.ID, attempts, lockedUntil); err != nil {
			return LoginResult{}, fault.Wrap(fault.KindPersistence, "recording failed login", err)
		}
		return reject(&u.ID, reason, ErrInvalidCredentials)
	}

	// Success: the failure counter resets and any stale lock clears.
	if err := users.RecordSuccessfulLogin(ctx, u.ID); err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "recording login", err)
	}

	result, err := e.issueSession(ctx, db, u, clientIP, userAgent)
	if err != nil {
		return LoginResult{}, err
	}

	appendAudit(ctx, db, e.logger, model.AuditEntry{
		ActorID:     &u.ID,
		Action:      model.AuditLogin,
		EntityType:  strPtr("session"),
		EntityID:    strPtr(result.SessionID),
		Description: "login for " + username,
		Success:     true,
		ClientIP:    clientIP,
		UserAgent:   userAgent,
	})
	return result, nil
}

// issueSession mints the token pair and records the session row.
func (e *AuthEngine) issueSession(ctx context.Context, db *sql.DB, u model.UserAccount, clientIP, userAgent *string) (LoginResult, error) {
	sessionID := uuid.NewString()
	access, err := utils.NewAccessToken(e.cfg.JWTSecret, u.ID, u.Role, sessionID, e.cfg.AccessTTLMin)
	if err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "signing access token", err)
	}
	refresh, err := utils.NewRefreshToken(e.cfg.RefreshTTLDays)
	if err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "generating refresh token", err)
	}
	session := &model.Session{
		ID:               sessionID,
		UserID:           u.ID,
		AccessExpiresAt:  access.Exp,
		RefreshTokenHash: utils.HashRefreshRaw(refresh.Raw),
		RefreshExpiresAt: refresh.Exp,
		IsActive:         true,
		ClientIP:         clientIP,
		UserAgent:        userAgent,
	}
	if err := repository.NewSessionRepo(db).Create(ctx, session); err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "saving session", err)
	}
	return LoginResult{
		User:               UserProfile{ID: u.ID, Username: u.Username, Role: u.Role},
		Access:             access,
		Refresh:            refresh,
		SessionID:          sessionID,
		MustChangePassword: u.MustChangePassword,
	}, nil
}

// VerifyToken checks an access token end to end: signature and expiry,
// token-type tag, and independently that the session it names is still
// active and unexpired. A structurally valid token over a deactivated
// session fails here.
func (e *AuthEngine) VerifyToken(ctx context.Context, raw string) (UserProfile, error) {
	claims, err := utils.ParseAccessToken(e.cfg.JWTSecret, raw)
	if err != nil {
		return UserProfile{}, ErrInvalidToken
	}
	db, err := e.pool.Acquire()
	if err != nil {
		return UserProfile{}, err
	}
	session, err := repository.NewSessionRepo(db).GetByID(ctx, claims.SessionID)
	if err == sql.ErrNoRows {
		return UserProfile{}, ErrInvalidToken
	}
	if err != nil {
		return UserProfile{}, fault.Wrap(fault.KindPersistence, "loading session", err)
	}
	if session.UserID != claims.UserID || !session.Usable(e.now()) {
		return UserProfile{}, ErrInvalidToken
	}
	u, err := repository.NewUserRepo(db).GetByID(ctx, claims.UserID)
	if err == sql.ErrNoRows {
		return UserProfile{}, ErrInvalidToken
	}
	if err != nil {
		return UserProfile{}, fault.Wrap(fault.KindPersistence, "loading user", err)
	}
	if !u.IsActive {
		return UserProfile{}, ErrInvalidToken
	}
	return UserProfile{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// session is deactivated; refresh tokens are single-use.
func (e *AuthEngine) Refresh(ctx context.Context, rawRefresh string) (LoginResult, error) {
	db, err := e.pool.Acquire()
	if err != nil {
		return LoginResult{}, err
	}
	sessions := repository.NewSessionRepo(db)

	session, err := sessions.GetByRefreshHash(ctx, utils.HashRefreshRaw(rawRefresh))
	if err == sql.ErrNoRows {
		return LoginResult{}, ErrInvalidToken
	}
	if err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "loading session", err)
	}
	if !session.RefreshUsable(e.now()) {
		return LoginResult{}, ErrInvalidToken
	}
	u, err := repository.NewUserRepo(db).GetByID(ctx, session.UserID)
	if err != nil || !u.IsActive || !model.ValidRole(u.Role) {
		return LoginResult{}, ErrInvalidToken
	}
	if err := sessions.Deactivate(ctx, session.ID); err != nil {
		return LoginResult{}, fault.Wrap(fault.KindPersistence, "rotating session", err)
	}
	return e.issueSession(ctx, db, u, session.ClientIP, session.UserAgent)
}

// Logout deactivates the session named by the token. It is idempotent
// and always reports success: a client must never be stuck unable to log
// out. When the token does not parse but a user ID is supplied, every
// session of that user is deactivated instead.
func (e *AuthEngine) Logout(ctx context.Context, rawAccess string, userID *uint64) {
	db, err := e.pool.Acquire()
	if err != nil {
		e.logger.Warn("logout skipped, pool not ready", zap.Error(err))
		return
	}
	sessions := repository.NewSessionRepo(db)

	var actorID *uint64
	var entityID *string
	claims, err := utils.ParseAccessToken(e.cfg.JWTSecret, rawAccess)
	switch {
	case err == nil:
		actorID = &claims.UserID
		entityID = strPtr(claims.SessionID)
		if err := sessions.Deactivate(ctx, claims.SessionID); err != nil {
			e.logger.Warn("session deactivation failed", zap.Error(err))
		}
	case userID != nil:
		actorID = userID
		if err := sessions.DeactivateAllForUser(ctx, *userID); err != nil {
			e.logger.Warn("session deactivation failed", zap.Error(err))
		}
	default:
		e.logger.Warn("logout with unparsable token and no user id")
	}

	appendAudit(ctx, db, e.logger, model.AuditEntry{
		ActorID:     actorID,
		Action:      model.AuditLogout,
		EntityType:  strPtr("session"),
		EntityID:    entityID,
		Description: "logout",
		Success:     true,
	})
}

// ChangePassword verifies the current password, enforces the strength
// policy, rejects a new password equal to the current one and stores the
// new hash.
func (e *AuthEngine) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	db, err := e.pool.Acquire()
	if err != nil {
		return err
	}
	users := repository.NewUserRepo(db)

	u, err := users.GetByID(ctx, userID)
	if err == sql.ErrNoRows {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fault.Wrap(fault.KindPersistence, "loading user", err)
	}

	audit := func(success bool, reason string) {
		entry := model.AuditEntry{
			ActorID:     &userID,
			Action:      model.AuditPasswordChange,
			Description: "password change for " + u.Username,
			Success:     success,
		}
		if reason != "" {
			entry.ErrorMessage = strPtr(reason)
		}
		appendAudit(ctx, db, e.logger, entry)
	}

	if !utils.VerifyPassword(u.PasswordHash, current) {
		audit(false, "current password mismatch")
		return ErrInvalidCredentials
	}
	if current == next {
		audit(false, "new password equals current")
		return fault.New(fault.KindValidation, "new password must differ from the current one")
	}
	if err := utils.ValidatePasswordStrength(next); err != nil {
		audit(false, err.Error())
		return err
	}

	hash, err := utils.HashPassword(next, e.cfg.BcryptCost)
	if err != nil {
		return fault.Wrap(fault.KindPersistence, "hashing password", err)
	}
	if err := users.UpdatePassword(ctx, userID, hash); err != nil {
		return fault.Wrap(fault.KindPersistence, "storing password", err)
	}
	audit(true, "")
	return nil
}
