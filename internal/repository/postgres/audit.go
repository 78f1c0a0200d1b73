package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// AuditRepository persists audit events append-only. The seq column is a
// bigserial assigned by Postgres; the table carries no update or delete
// statements anywhere in this package.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type diffRecord struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
}

// Insert appends the event and returns its assigned sequence number.
func (r *AuditRepository) Insert(ctx context.Context, event domain.AuditEvent) (int64, error) {
	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadataJSON = encoded
	}

	var diffJSON []byte
	if event.Diff.Kind == domain.DiffPresent {
		encoded, err := json.Marshal(diffRecord{Before: event.Diff.Before, After: event.Diff.After})
		if err != nil {
			return 0, fmt.Errorf("marshal audit diff: %w", err)
		}
		diffJSON = encoded
	}

	stmt, args, err := r.builder.Insert("access.audit_events").
		Columns(
			"id", "ts", "action", "outcome",
			"actor_type", "actor_id",
			"target_type", "target_id",
			"request_method", "request_path", "request_id", "client_ip",
			"metadata", "diff",
		).
		Values(
			event.ID, event.Timestamp, event.Action, string(event.Outcome),
			string(event.Actor.Type), event.Actor.ID,
			event.Target.Type, event.Target.ID,
			event.Request.Method, event.Request.Path, event.Request.RequestID, event.Request.ClientIP,
			metadataJSON, diffJSON,
		).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert audit event sql: %w", err)
	}

	var seq int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("insert audit event: %w", err)
	}

	return seq, nil
}

// Query returns events matching the filter, newest first.
func (r *AuditRepository) Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	q := r.builder.Select(
		"id", "seq", "ts", "action", "outcome",
		"actor_type", "actor_id",
		"target_type", "target_id",
		"request_method", "request_path", "request_id", "client_ip",
		"metadata", "diff",
	).
		From("access.audit_events").
		OrderBy("seq DESC")

	if filter.ActorID != "" {
		q = q.Where(squirrel.Eq{"actor_id": filter.ActorID})
	}
	if filter.EventType != "" {
		q = q.Where(squirrel.Eq{"action": filter.EventType})
	}
	if filter.ResourceType != "" {
		q = q.Where(squirrel.Eq{"target_type": filter.ResourceType})
	}
	if filter.RequestID != "" {
		q = q.Where(squirrel.Eq{"request_id": filter.RequestID})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query audit events sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var (
			event        domain.AuditEvent
			ts           time.Time
			outcome      string
			actorType    string
			targetID     sql.NullString
			metadataJSON []byte
			diffJSON     []byte
		)

		if err := rows.Scan(
			&event.ID, &event.Seq, &ts, &event.Action, &outcome,
			&actorType, &event.Actor.ID,
			&event.Target.Type, &targetID,
			&event.Request.Method, &event.Request.Path, &event.Request.RequestID, &event.Request.ClientIP,
			&metadataJSON, &diffJSON,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Timestamp = ts
		event.Outcome = domain.Outcome(outcome)
		event.Actor.Type = domain.PrincipalType(actorType)
		if targetID.Valid {
			id := targetID.String
			event.Target.ID = &id
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		if len(diffJSON) > 0 {
			var record diffRecord
			if err := json.Unmarshal(diffJSON, &record); err != nil {
				return nil, fmt.Errorf("unmarshal audit diff: %w", err)
			}
			event.Diff = domain.NewDiff(record.Before, record.After)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
