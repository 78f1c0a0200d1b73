package port

import (
	"context"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// AuditPublisher mirrors durable audit events to the message bus for
// downstream consumers. Publishing is best-effort; the Postgres trail is
// the source of truth.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event domain.AuditEvent) error
}
