package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// SubjectHandler manages roles, positions, and their permission mappings.
type SubjectHandler struct {
	permissions *usecase.PermissionService
	audit       *usecase.AuditService
}

// NewSubjectHandler builds a subject handler.
func NewSubjectHandler(permissions *usecase.PermissionService, audit *usecase.AuditService) *SubjectHandler {
	return &SubjectHandler{permissions: permissions, audit: audit}
}

// CreateRole registers a new role.
func (h *SubjectHandler) CreateRole(c *gin.Context) {
	var req SubjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.permissions.CreateRole(c.Request.Context(), usecase.CreateSubjectInput{
		Key:         strings.TrimSpace(req.Key),
		Description: req.Description,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrDuplicate, Status: http.StatusConflict, Message: "role already exists"},
		}, http.StatusInternalServerError, "failed to create role")
		return
	}

	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("role", role.ID), domain.NewDiff(nil, map[string]any{"key": role.Key}), map[string]any{"operation": "role.create"}) {
		return
	}

	c.JSON(http.StatusCreated, RoleSummary{ID: role.ID, Key: role.Key, Description: role.Description})
}

// CreatePosition registers a new position.
func (h *SubjectHandler) CreatePosition(c *gin.Context) {
	var req SubjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid position payload"))
		return
	}

	position, err := h.permissions.CreatePosition(c.Request.Context(), usecase.CreateSubjectInput{
		Key:         strings.TrimSpace(req.Key),
		UnitScope:   req.UnitScope,
		Description: req.Description,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrDuplicate, Status: http.StatusConflict, Message: "position already exists"},
		}, http.StatusInternalServerError, "failed to create position")
		return
	}

	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("position", position.ID), domain.NewDiff(nil, map[string]any{"key": position.Key}), map[string]any{"operation": "position.create"}) {
		return
	}

	c.JSON(http.StatusCreated, PositionSummary{
		ID:          position.ID,
		Key:         position.Key,
		UnitScope:   position.UnitScope,
		Description: position.Description,
	})
}

// ReplaceRoleMappings swaps a role's permission grants wholesale.
func (h *SubjectHandler) ReplaceRoleMappings(c *gin.Context) {
	var req MappingsReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid mappings payload"))
		return
	}

	roleKey := c.Param("key")
	if err := h.permissions.ReplaceRoleMappings(c.Request.Context(), roleKey, req.PermissionKeys); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "role or permission not found"},
		}, http.StatusInternalServerError, "failed to replace role mappings")
		return
	}

	after := map[string]any{"permission_keys": req.PermissionKeys}
	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("role", roleKey), domain.NewDiff(nil, after), map[string]any{"operation": "role.mappings.replace"}) {
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role mappings replaced"})
}

// ReplacePositionMappings swaps a position's permission grants wholesale.
func (h *SubjectHandler) ReplacePositionMappings(c *gin.Context) {
	var req MappingsReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid mappings payload"))
		return
	}

	positionKey := c.Param("key")
	if err := h.permissions.ReplacePositionMappings(c.Request.Context(), positionKey, req.PermissionKeys); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "position or permission not found"},
		}, http.StatusInternalServerError, "failed to replace position mappings")
		return
	}

	after := map[string]any{"permission_keys": req.PermissionKeys}
	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("position", positionKey), domain.NewDiff(nil, after), map[string]any{"operation": "position.mappings.replace"}) {
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "position mappings replaced"})
}
