package port

import (
	"context"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// AuditRepository persists audit events append-only. Insert assigns the
// event's sequence number; there are no update or delete operations.
type AuditRepository interface {
	Insert(ctx context.Context, event domain.AuditEvent) (int64, error)
	Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
}
