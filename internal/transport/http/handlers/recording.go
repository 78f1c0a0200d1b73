package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/transport/http/middleware"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// recordChange writes the audit event for a completed mutation. The write is
// part of the request's consistency boundary: when it fails the handler must
// not report success, so the helper responds 500 and returns false.
func recordChange(c *gin.Context, audit *usecase.AuditService, action domain.Action, target domain.Target, diff domain.Diff, metadata map[string]any) bool {
	principal := middleware.GetPrincipal(c)

	if metadata == nil {
		metadata = make(map[string]any, 1)
	}
	metadata["trace_id"] = middleware.GetTraceID(c)

	event := domain.AuditEvent{
		Action:  string(action),
		Outcome: domain.OutcomeSuccess,
		Actor:   domain.Actor{Type: principal.Type, ID: principal.ID},
		Target:  target,
		Request: domain.RequestInfo{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RequestID: middleware.GetRequestID(c),
			ClientIP:  c.ClientIP(),
		},
		Metadata: metadata,
		Diff:     diff,
	}

	if _, err := audit.RecordChange(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "audit log unavailable"))
		return false
	}

	middleware.MarkAuditRecorded(c)
	return true
}

func targetRef(targetType, id string) domain.Target {
	if id == "" {
		return domain.Target{Type: targetType}
	}
	return domain.Target{Type: targetType, ID: &id}
}
