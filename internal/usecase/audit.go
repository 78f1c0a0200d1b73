package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// ErrAuditWriteFailed indicates the durable audit insert failed. For a
// mutating action this aborts the action: the audit trail is part of the
// write path's consistency boundary.
var ErrAuditWriteFailed = errors.New("audit write failed")

const (
	defaultAuditQueryLimit = 50
	maxAuditQueryLimit     = 500
)

// AuditService is the append-only audit pipeline. Events for mutating
// actions must be durably written before the response finalizes; events for
// read-only access are best-effort.
type AuditService struct {
	store     port.AuditRepository
	publisher port.AuditPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditService constructs the audit pipeline.
func NewAuditService(store port.AuditRepository, publisher port.AuditPublisher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *AuditService) WithClock(now func() time.Time) *AuditService {
	if now != nil {
		s.now = now
	}
	return s
}

// RecordChange appends an event for a state-changing action. The insert
// runs on a context detached from request cancellation: once the mutation
// happened the audit record is treated as an already-committed side effect,
// client disconnects included. An insert failure surfaces as
// ErrAuditWriteFailed and must fail the action.
func (s *AuditService) RecordChange(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	event = s.normalize(event)

	seq, err := s.store.Insert(context.WithoutCancel(ctx), event)
	if err != nil {
		s.logger.Error("audit write failed for mutating action",
			zap.String("event_id", event.ID),
			zap.String("action", event.Action),
			zap.Error(err),
		)
		return event, fmt.Errorf("%w: %v", ErrAuditWriteFailed, err)
	}
	event.Seq = seq

	s.publish(ctx, event)
	return event, nil
}

// RecordAccess appends an event for a read-only access. Write failures are
// logged and swallowed; read auditing never fails the request.
func (s *AuditService) RecordAccess(ctx context.Context, event domain.AuditEvent) {
	event = s.normalize(event)

	seq, err := s.store.Insert(context.WithoutCancel(ctx), event)
	if err != nil {
		s.logger.Warn("audit write failed for access event",
			zap.String("event_id", event.ID),
			zap.String("action", event.Action),
			zap.Error(err),
		)
		return
	}
	event.Seq = seq

	s.publish(ctx, event)
}

// Query returns events matching the filter, newest first.
func (s *AuditService) Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditQueryLimit
	}
	if filter.Limit > maxAuditQueryLimit {
		filter.Limit = maxAuditQueryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	return events, nil
}

func (s *AuditService) normalize(event domain.AuditEvent) domain.AuditEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if event.Outcome == "" {
		event.Outcome = domain.OutcomeSuccess
	}
	if event.Actor.Type == "" {
		event.Actor.Type = domain.PrincipalAnonymous
	}
	return event
}

// publish mirrors the event to the bus. Best-effort: the Postgres row is
// the source of truth.
func (s *AuditService) publish(ctx context.Context, event domain.AuditEvent) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishAuditEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("audit event publish failed",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
}
