package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

const auditRecordedKey = "audit_recorded"

// RouteActions maps "METHOD /route/path" onto the action the route requires.
// The table is static and validated at startup so an unmapped route is a
// configuration fault, not a silent allow.
type RouteActions map[string]domain.Action

// RouteKey builds the lookup key for a method and registered route path.
func RouteKey(method, route string) string {
	return method + " " + route
}

// Validate rejects tables referencing unknown actions.
func (r RouteActions) Validate() error {
	known := make(map[domain.Action]struct{})
	for _, action := range domain.Actions() {
		known[action] = struct{}{}
	}

	for route, action := range r {
		if _, ok := known[action]; !ok {
			return fmt.Errorf("route %q mapped to unknown action %q", route, action)
		}
	}

	return nil
}

// Authorizer enforces action-level authorization on mapped routes and emits
// access audit events for the requests it lets through or turns away.
type Authorizer struct {
	resolver port.PrincipalResolver
	authz    *usecase.AuthorizeService
	audit    *usecase.AuditService
	metrics  *HTTPMetrics
	logger   *zap.Logger
	bypass   bool
}

// NewAuthorizer wires the authorization middleware dependencies. When bypass
// is set every mapped route passes without evaluation; intended for local
// development only, and every bypassed request is still audited.
func NewAuthorizer(resolver port.PrincipalResolver, authz *usecase.AuthorizeService, audit *usecase.AuditService, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Authorizer{
		resolver: resolver,
		authz:    authz,
		audit:    audit,
		logger:   logger,
	}
}

// WithBypass toggles enforcement bypass.
func (a *Authorizer) WithBypass(bypass bool) *Authorizer {
	a.bypass = bypass
	return a
}

// WithMetrics attaches the denied-request counter.
func (a *Authorizer) WithMetrics(m *HTTPMetrics) *Authorizer {
	a.metrics = m
	return a
}

// Guard enforces the route table on every request passing through it. The
// caller is resolved first, so bad credentials yield 401 even on routes the
// table does not know; resolved requests to unmapped routes are rejected with
// 400: fail closed on configuration gaps.
func (a *Authorizer) Guard(routes RouteActions) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := a.resolvePrincipal(c)
		if !ok {
			return
		}
		SetPrincipal(c, principal)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		action, ok := routes[RouteKey(c.Request.Method, route)]
		if !ok {
			a.logger.Error("request for unmapped route",
				zap.String("method", c.Request.Method),
				zap.String("route", route),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unmapped_route"})
			return
		}

		a.enforce(c, principal, action)
	}
}

// Authenticate resolves the caller without evaluating any action. Routes
// that take decisions as data rather than enforcement use this.
func (a *Authorizer) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := a.resolvePrincipal(c)
		if !ok {
			return
		}
		SetPrincipal(c, principal)
		c.Next()
	}
}

// Require guards a single route with the given action. Requests reach the
// handler only after the caller is resolved and the action is allowed; the
// handler finds the principal and decision in the request context.
func (a *Authorizer) Require(action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := a.resolvePrincipal(c)
		if !ok {
			return
		}
		SetPrincipal(c, principal)

		a.enforce(c, principal, action)
	}
}

func (a *Authorizer) enforce(c *gin.Context, principal domain.Principal, action domain.Action) {
	if a.bypass {
		// No decision is evaluated or stored; handlers see the missing
		// context decision and know no evaluation happened.
		a.logger.Warn("authorization bypass active",
			zap.String("action", string(action)),
			zap.String("actor_id", principal.ID),
		)
		c.Next()
		a.recordAccess(c, principal, action)
		return
	}

	decision, err := a.authz.Authorize(c.Request.Context(), principal, action, GetTraceID(c))
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownAction) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown_action"})
			return
		}
		a.logger.Error("authorization evaluation failed",
			zap.String("action", string(action)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.Set(DecisionKey, decision)

	if !decision.Allow {
		a.metrics.RecordDenied(string(action))
		a.recordDenied(c, principal, action, decision)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"reasons": decision.Reasons,
		})
		return
	}

	c.Next()
	a.recordAccess(c, principal, action)
}

// MarkAuditRecorded tells the middleware the handler already wrote the audit
// event for this request. Mutating handlers do this so the event carries the
// diff and rides the request's consistency boundary.
func MarkAuditRecorded(c *gin.Context) {
	c.Set(auditRecordedKey, true)
}

func (a *Authorizer) resolvePrincipal(c *gin.Context) (domain.Principal, bool) {
	credentials := bearerToken(c.GetHeader("Authorization"))

	principal, err := a.resolver.Resolve(c.Request.Context(), credentials)
	if err != nil {
		switch {
		case errors.Is(err, port.ErrNoCredentials):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, port.ErrInvalidCredentials):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		default:
			a.logger.Error("principal resolution failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return domain.Principal{}, false
	}

	return principal, true
}

func (a *Authorizer) recordDenied(c *gin.Context, principal domain.Principal, action domain.Action, decision domain.Decision) {
	event := a.baseEvent(c, principal, action)
	event.Outcome = domain.OutcomeFailure
	event.Metadata["reasons"] = decision.Reasons
	a.audit.RecordAccess(c.Request.Context(), event)
}

func (a *Authorizer) recordAccess(c *gin.Context, principal domain.Principal, action domain.Action) {
	if c.GetBool(auditRecordedKey) {
		return
	}
	// Mutating handlers own their audit write; a mutation reaching this
	// point without one means the handler bailed before changing state.
	event := a.baseEvent(c, principal, action)
	if c.Writer.Status() >= http.StatusBadRequest {
		event.Outcome = domain.OutcomeFailure
		event.Metadata["status"] = c.Writer.Status()
	}
	a.audit.RecordAccess(c.Request.Context(), event)
}

func (a *Authorizer) baseEvent(c *gin.Context, principal domain.Principal, action domain.Action) domain.AuditEvent {
	return domain.AuditEvent{
		Action:  string(action),
		Outcome: domain.OutcomeSuccess,
		Actor:   domain.Actor{Type: principal.Type, ID: principal.ID},
		Request: domain.RequestInfo{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RequestID: GetRequestID(c),
			ClientIP:  c.ClientIP(),
		},
		Metadata: map[string]any{"trace_id": GetTraceID(c)},
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
