package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// AuditHandler exposes the audit trail query surface.
type AuditHandler struct {
	audit *usecase.AuditService
}

// NewAuditHandler builds an audit handler.
func NewAuditHandler(audit *usecase.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListEvents returns audit events newest-first, narrowed by query filters.
func (h *AuditHandler) ListEvents(c *gin.Context) {
	filter := domain.AuditFilter{
		ActorID:      strings.TrimSpace(c.Query("actor_id")),
		EventType:    strings.TrimSpace(c.Query("event_type")),
		ResourceType: strings.TrimSpace(c.Query("resource_type")),
		RequestID:    strings.TrimSpace(c.Query("request_id")),
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a non-negative integer"))
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "offset must be a non-negative integer"))
		return
	}

	events, err := h.audit.Query(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to query audit events"))
		return
	}

	views := make([]AuditEventView, 0, len(events))
	for _, event := range events {
		views = append(views, newAuditEventView(event))
	}

	c.JSON(http.StatusOK, AuditListResponse{Events: views})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, strconv.ErrSyntax
	}

	return value, nil
}
