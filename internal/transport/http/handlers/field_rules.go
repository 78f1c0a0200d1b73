package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// FieldRuleHandler manages field visibility rules.
type FieldRuleHandler struct {
	permissions *usecase.PermissionService
	audit       *usecase.AuditService
}

// NewFieldRuleHandler builds a field rule handler.
func NewFieldRuleHandler(permissions *usecase.PermissionService, audit *usecase.AuditService) *FieldRuleHandler {
	return &FieldRuleHandler{permissions: permissions, audit: audit}
}

// Upsert creates or replaces the field rule for a (permission, subject) pair.
func (h *FieldRuleHandler) Upsert(c *gin.Context) {
	var req FieldRuleUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid field rule payload"))
		return
	}

	rule, err := h.permissions.UpsertFieldRule(c.Request.Context(), usecase.FieldRuleInput{
		PermissionKey: strings.TrimSpace(req.PermissionKey),
		RoleKey:       req.RoleKey,
		PositionKey:   req.PositionKey,
		Mode:          domain.FieldMode(strings.ToUpper(strings.TrimSpace(req.Mode))),
		Fields:        req.Fields,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRuleScope, Status: http.StatusBadRequest, Message: "field rule must scope exactly one of role or position"},
			{Err: usecase.ErrInvalidFieldMode, Status: http.StatusBadRequest, Message: "field rule mode must be one of ALLOW, DENY, OMIT, MASK"},
			{Err: usecase.ErrNoFields, Status: http.StatusBadRequest, Message: "field rule requires at least one field"},
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "permission, role, or position not found"},
		}, http.StatusInternalServerError, "failed to upsert field rule")
		return
	}

	after := map[string]any{"mode": string(rule.Mode), "fields": rule.Fields}
	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("field_rule", rule.ID), domain.NewDiff(nil, after), map[string]any{"operation": "field_rule.upsert"}) {
		return
	}

	c.JSON(http.StatusOK, newFieldRuleSummary(*rule))
}

// Delete removes a field rule by identifier.
func (h *FieldRuleHandler) Delete(c *gin.Context) {
	ruleID := c.Param("id")

	if err := h.permissions.DeleteFieldRule(c.Request.Context(), ruleID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "field rule not found"},
		}, http.StatusInternalServerError, "failed to delete field rule")
		return
	}

	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("field_rule", ruleID), domain.NewDiff(map[string]any{"id": ruleID}, nil), map[string]any{"operation": "field_rule.delete"}) {
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "field rule deleted"})
}
