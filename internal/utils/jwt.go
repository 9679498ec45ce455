// Package utils provides helper functions for token creation, token
// verification and password hashing.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type tags carried in the "typ" claim. An access token must never
// verify where a refresh token is expected and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenInvalid   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("wrong token type")
)

// AccessToken is a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is the long-lived opaque token used to obtain new access
// tokens. Only a SHA-256 hash of Raw is ever persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    uint64
	Role      string
	SessionID string
	ExpiresAt time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user. Claims: sub
// (user ID), role, sid (session ID), typ, exp, iat.
func NewAccessToken(secret string, userID uint64, role, sessionID string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"sid":  sessionID,
		"typ":  TokenTypeAccess,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, expiry and token type, and
// extracts the claims the engines rely on. Structural validity alone is
// not enough to authenticate: the caller must still check the session
// named by SessionID.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrTokenInvalid
	}
	if typ, _ := claims["typ"].(string); typ != TokenTypeAccess {
		return AccessClaims{}, ErrWrongTokenType
	}
	var out AccessClaims
	switch sub := claims["sub"].(type) {
	case float64:
		out.UserID = uint64(sub)
	default:
		return AccessClaims{}, ErrTokenInvalid
	}
	out.Role, _ = claims["role"].(string)
	out.SessionID, _ = claims["sid"].(string)
	if out.SessionID == "" {
		return AccessClaims{}, ErrTokenInvalid
	}
	if exp, errExp := claims.GetExpirationTime(); errExp == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// NewRefreshToken returns a cryptographically random opaque token and
// its expiration.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token. Only
// this hash is stored, so stolen session rows cannot mint new sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
