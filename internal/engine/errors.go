// Package engine implements the transactional sale commit and the
// authentication/session flows on top of the connection pool.
package engine

import "github.com/iliyamo/retail-pos-core/internal/fault"

// Sentinel errors callers branch on with errors.Is. Each already carries
// its fault.Kind, so HTTP mapping and retry classification need no
// string matching.
var (
	// ErrInvalidCredentials is the single outward-facing login failure.
	// The audit trail records the precise reason; the caller never learns
	// whether the username exists.
	ErrInvalidCredentials = fault.New(fault.KindAuthentication, "invalid credentials")

	// ErrAccountLocked is returned while a lockout window is open.
	ErrAccountLocked = fault.New(fault.KindAuthentication, "account is locked")

	// ErrInvalidToken is returned when a token fails verification for any
	// reason, including a deactivated or expired session.
	ErrInvalidToken = fault.New(fault.KindAuthentication, "invalid token")

	// ErrInsufficientStock rejects a sale whose cart asks for more than
	// is on hand.
	ErrInsufficientStock = fault.New(fault.KindValidation, "insufficient stock")
)
