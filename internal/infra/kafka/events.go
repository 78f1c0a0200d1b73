package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/config"
)

const (
	schemaVersion  = "1.0"
	auditEventType = "audit.recorded"
)

// AuditPublisher implements port.AuditPublisher using Kafka. Publishing
// mirrors the durable Postgres trail for downstream consumers (SIEM,
// reporting); the trail itself never depends on the bus.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewAuditPublisher constructs a Kafka-backed audit publisher.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	ActorID   string           `json:"actor_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

type auditPayload struct {
	Seq         int64          `json:"seq"`
	Action      string         `json:"action"`
	Outcome     string         `json:"outcome"`
	ActorType   string         `json:"actor_type"`
	ActorID     string         `json:"actor_id"`
	TargetType  string         `json:"target_type,omitempty"`
	TargetID    *string        `json:"target_id,omitempty"`
	Method      string         `json:"method,omitempty"`
	Path        string         `json:"path,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	ClientIP    string         `json:"client_ip,omitempty"`
	EventData   map[string]any `json:"event_data,omitempty"`
	DiffPresent bool           `json:"diff_present"`
	DiffBefore  map[string]any `json:"diff_before,omitempty"`
	DiffAfter   map[string]any `json:"diff_after,omitempty"`
}

// PublishAuditEvent sends the event to the audit topic.
func (p *AuditPublisher) PublishAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	payload := auditPayload{
		Seq:        event.Seq,
		Action:     event.Action,
		Outcome:    string(event.Outcome),
		ActorType:  string(event.Actor.Type),
		ActorID:    event.Actor.ID,
		TargetType: event.Target.Type,
		TargetID:   event.Target.ID,
		Method:     event.Request.Method,
		Path:       event.Request.Path,
		RequestID:  event.Request.RequestID,
		ClientIP:   event.Request.ClientIP,
		EventData:  event.Metadata,
	}
	if event.Diff.Kind == domain.DiffPresent {
		payload.DiffPresent = true
		payload.DiffBefore = event.Diff.Before
		payload.DiffAfter = event.Diff.After
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: auditEventType,
		ActorID:   event.Actor.ID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(auditEventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.AuditPublisher = (*AuditPublisher)(nil)
