package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// StubPublisher logs audit events instead of sending them to Kafka.
// Useful for development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly audit publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishAuditEvent logs the event that would have been produced.
func (p *StubPublisher) PublishAuditEvent(_ context.Context, event domain.AuditEvent) error {
	at := event.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub audit event published",
		zap.String("event_id", event.ID),
		zap.Int64("seq", event.Seq),
		zap.String("action", event.Action),
		zap.String("outcome", string(event.Outcome)),
		zap.String("actor_id", event.Actor.ID),
		zap.Time("timestamp", at.UTC()),
	)

	return nil
}

var _ port.AuditPublisher = (*StubPublisher)(nil)
