package engine

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/iliyamo/retail-pos-core/internal/model"
	"github.com/iliyamo/retail-pos-core/internal/repository"
)

// appendAudit writes one audit row and swallows any failure: audit
// logging must never break a user-facing flow. Failures are still logged
// so operators notice a broken trail.
func appendAudit(ctx context.Context, db *sql.DB, logger *zap.Logger, e model.AuditEntry) {
	if err := repository.NewAuditRepo(db).Append(ctx, e); err != nil {
		logger.Warn("audit append failed",
			zap.String("action", e.Action),
			zap.Bool("success", e.Success),
			zap.Error(err))
	}
}

func strPtr(s string) *string { return &s }
