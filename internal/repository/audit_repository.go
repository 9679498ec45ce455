package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/retail-pos-core/internal/model"
)

// AuditRepo appends to the immutable audit trail. Write-only: reading
// and reporting are out of this core's scope.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Append inserts one audit row. The entry's ID is generated here when
// empty.
func (r *AuditRepo) Append(ctx context.Context, e model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, description, success, error_message, client_ip, user_agent)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Description,
		e.Success, e.ErrorMessage, e.ClientIP, e.UserAgent)
	return err
}
