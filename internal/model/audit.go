package model

import "time"

// Audit actions recorded by the engines.
const (
	AuditLogin          = "LOGIN"
	AuditLogout         = "LOGOUT"
	AuditPasswordChange = "PASSWORD_CHANGE"
	AuditSaleCommit     = "SALE_COMMIT"
)

// AuditEntry is one row of the append-only audit trail. The trail is
// write-only from this core's perspective; reading and reporting happen
// elsewhere.
type AuditEntry struct {
	ID           string // UUID
	ActorID      *uint64
	Action       string
	EntityType   *string
	EntityID     *string
	Description  string
	Success      bool
	ErrorMessage *string
	ClientIP     *string
	UserAgent    *string
	CreatedAt    time.Time
}
