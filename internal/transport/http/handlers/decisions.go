package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/transport/http/middleware"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// DecisionHandler lets authenticated callers ask how an action would be
// decided for them. Sibling services use it to enforce decisions for
// resources they own without linking the engine in-process.
type DecisionHandler struct {
	authz *usecase.AuthorizeService
}

// NewDecisionHandler builds a decision handler.
func NewDecisionHandler(authz *usecase.AuthorizeService) *DecisionHandler {
	return &DecisionHandler{authz: authz}
}

// Evaluate computes a decision for the calling principal and the requested
// action. The decision is returned, never enforced here: a deny is still a
// 200 with allow=false.
func (h *DecisionHandler) Evaluate(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid decision payload"))
		return
	}

	principal := middleware.GetPrincipal(c)
	action := domain.Action(strings.TrimSpace(req.Action))

	decision, err := h.authz.Authorize(c.Request.Context(), principal, action, middleware.GetTraceID(c))
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownAction) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown action"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to evaluate decision"))
		return
	}

	c.JSON(http.StatusOK, newDecisionResponse(decision))
}
