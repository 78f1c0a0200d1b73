package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/repository"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// PermissionHandler exposes the permission registry admin surface.
type PermissionHandler struct {
	permissions *usecase.PermissionService
	audit       *usecase.AuditService
}

// NewPermissionHandler builds a permission handler.
func NewPermissionHandler(permissions *usecase.PermissionService, audit *usecase.AuditService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions, audit: audit}
}

// Create registers a new permission key.
func (h *PermissionHandler) Create(c *gin.Context) {
	var req PermissionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	permission, err := h.permissions.CreatePermission(c.Request.Context(), usecase.CreatePermissionInput{
		Key:         strings.TrimSpace(req.Key),
		Description: req.Description,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidPermissionKey, Status: http.StatusBadRequest, Message: "permission key must look like resource:action"},
			{Err: usecase.ErrPermissionExists, Status: http.StatusConflict, Message: "permission already exists"},
			{Err: repository.ErrDuplicate, Status: http.StatusConflict, Message: "permission already exists"},
		}, http.StatusInternalServerError, "failed to create permission")
		return
	}

	after := map[string]any{"key": permission.Key}
	if permission.Description != nil {
		after["description"] = *permission.Description
	}
	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("permission", permission.ID), domain.NewDiff(nil, after), map[string]any{"operation": "permission.create"}) {
		return
	}

	c.JSON(http.StatusCreated, newPermissionSummary(*permission))
}

// Get returns a permission by key.
func (h *PermissionHandler) Get(c *gin.Context) {
	permission, err := h.permissions.GetPermission(c.Request.Context(), c.Param("key"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to load permission")
		return
	}

	c.JSON(http.StatusOK, newPermissionSummary(*permission))
}

// Delete removes a permission by key.
func (h *PermissionHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	permission, err := h.permissions.GetPermission(ctx, c.Param("key"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to load permission")
		return
	}

	if err := h.permissions.DeletePermission(ctx, permission.ID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to delete permission")
		return
	}

	before := map[string]any{"key": permission.Key}
	if !recordChange(c, h.audit, domain.ActionRoleManage, targetRef("permission", permission.ID), domain.NewDiff(before, nil), map[string]any{"operation": "permission.delete"}) {
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "permission deleted"})
}

// ListForRole returns the permissions granted to a role.
func (h *PermissionHandler) ListForRole(c *gin.Context) {
	permissions, err := h.permissions.ListPermissionsForRole(c.Request.Context(), c.Param("key"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	c.JSON(http.StatusOK, permissionList(permissions))
}

// ListForPosition returns the permissions granted to a position.
func (h *PermissionHandler) ListForPosition(c *gin.Context) {
	permissions, err := h.permissions.ListPermissionsForPosition(c.Request.Context(), c.Param("key"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "position not found"},
		}, http.StatusInternalServerError, "failed to list permissions")
		return
	}

	c.JSON(http.StatusOK, permissionList(permissions))
}

func permissionList(permissions []domain.Permission) gin.H {
	summaries := make([]PermissionSummary, 0, len(permissions))
	for _, p := range permissions {
		summaries = append(summaries, newPermissionSummary(p))
	}
	return gin.H{"permissions": summaries}
}
