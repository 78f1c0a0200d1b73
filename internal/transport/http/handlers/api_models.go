package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// PermissionCreateRequest defines the payload for registering a permission.
type PermissionCreateRequest struct {
	Key         string  `json:"key" binding:"required"`
	Description *string `json:"description"`
}

// PermissionSummary is the API view of a permission.
type PermissionSummary struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Description *string `json:"description,omitempty"`
}

func newPermissionSummary(p domain.Permission) PermissionSummary {
	return PermissionSummary{ID: p.ID, Key: p.Key, Description: p.Description}
}

// SubjectCreateRequest defines the payload for creating a role or position.
type SubjectCreateRequest struct {
	Key         string  `json:"key" binding:"required"`
	UnitScope   *string `json:"unit_scope"`
	Description *string `json:"description"`
}

// RoleSummary is the API view of a role.
type RoleSummary struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Description *string `json:"description,omitempty"`
}

// PositionSummary is the API view of a position.
type PositionSummary struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	UnitScope   *string `json:"unit_scope,omitempty"`
	Description *string `json:"description,omitempty"`
}

// MappingsReplaceRequest defines the payload for replacing a subject's
// permission grants wholesale.
type MappingsReplaceRequest struct {
	PermissionKeys []string `json:"permission_keys" binding:"required"`
}

// FieldRuleUpsertRequest defines the payload for creating or updating a
// field visibility rule. Exactly one of role_key and position_key must be set.
type FieldRuleUpsertRequest struct {
	PermissionKey string   `json:"permission_key" binding:"required"`
	RoleKey       *string  `json:"role_key"`
	PositionKey   *string  `json:"position_key"`
	Mode          string   `json:"mode" binding:"required"`
	Fields        []string `json:"fields" binding:"required"`
}

// FieldRuleSummary is the API view of a field rule.
type FieldRuleSummary struct {
	ID           string   `json:"id"`
	PermissionID string   `json:"permission_id"`
	RoleID       *string  `json:"role_id,omitempty"`
	PositionID   *string  `json:"position_id,omitempty"`
	Mode         string   `json:"mode"`
	Fields       []string `json:"fields"`
}

func newFieldRuleSummary(r domain.FieldRule) FieldRuleSummary {
	return FieldRuleSummary{
		ID:           r.ID,
		PermissionID: r.PermissionID,
		RoleID:       r.RoleID,
		PositionID:   r.PositionID,
		Mode:         string(r.Mode),
		Fields:       r.Fields,
	}
}

// DecisionRequest asks the engine to evaluate an action for the caller.
type DecisionRequest struct {
	Action string `json:"action" binding:"required"`
}

// DecisionResponse is the API view of an authorization decision.
type DecisionResponse struct {
	Allow       bool                `json:"allow"`
	Reasons     []domain.Reason     `json:"reasons"`
	Obligations []domain.Obligation `json:"obligations,omitempty"`
	TraceID     string              `json:"trace_id,omitempty"`
	EngineID    string              `json:"engine_id"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

func newDecisionResponse(d domain.Decision) DecisionResponse {
	return DecisionResponse{
		Allow:       d.Allow,
		Reasons:     d.Reasons,
		Obligations: d.Obligations,
		TraceID:     d.TraceID,
		EngineID:    d.EngineID,
		EvaluatedAt: d.EvaluatedAt,
	}
}

// AuditEventView is the API view of an audit event.
type AuditEventView struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	Outcome    string         `json:"outcome"`
	ActorType  string         `json:"actor_type"`
	ActorID    string         `json:"actor_id,omitempty"`
	TargetType string         `json:"target_type,omitempty"`
	TargetID   *string        `json:"target_id,omitempty"`
	Method     string         `json:"method,omitempty"`
	Path       string         `json:"path,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	ClientIP   string         `json:"client_ip,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DiffBefore map[string]any `json:"diff_before,omitempty"`
	DiffAfter  map[string]any `json:"diff_after,omitempty"`
}

func newAuditEventView(e domain.AuditEvent) AuditEventView {
	view := AuditEventView{
		ID:         e.ID,
		Seq:        e.Seq,
		Timestamp:  e.Timestamp,
		Action:     e.Action,
		Outcome:    string(e.Outcome),
		ActorType:  string(e.Actor.Type),
		ActorID:    e.Actor.ID,
		TargetType: e.Target.Type,
		TargetID:   e.Target.ID,
		Method:     e.Request.Method,
		Path:       e.Request.Path,
		RequestID:  e.Request.RequestID,
		ClientIP:   e.Request.ClientIP,
		Metadata:   e.Metadata,
	}

	if e.Diff.Kind == domain.DiffPresent {
		view.DiffBefore = e.Diff.Before
		view.DiffAfter = e.Diff.After
	}

	return view
}

// AuditListResponse wraps a page of audit events.
type AuditListResponse struct {
	Events []AuditEventView `json:"events"`
}
