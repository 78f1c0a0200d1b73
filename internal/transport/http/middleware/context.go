package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// PrincipalKey is the context key for the resolved caller
	PrincipalKey = "principal"
	// DecisionKey is the context key for the authorization decision
	DecisionKey = "authz_decision"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID   string
	IP        string
	UserAgent string
}

// EnrichContext adds trace ID and request context to each request
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if trace ID already exists in header, otherwise generate one
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		reqCtx := &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Set("request_context", reqCtx)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get("request_context"); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}

// SetPrincipal stores the resolved caller for downstream handlers.
func SetPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(PrincipalKey, principal)
}

// GetPrincipal retrieves the resolved caller; anonymous when unresolved.
func GetPrincipal(c *gin.Context) domain.Principal {
	if v, exists := c.Get(PrincipalKey); exists {
		if principal, ok := v.(domain.Principal); ok {
			return principal
		}
	}
	return domain.Anonymous()
}

// GetDecision retrieves the authorization decision attached by the
// authorization middleware, when one was evaluated for the route.
func GetDecision(c *gin.Context) (domain.Decision, bool) {
	if v, exists := c.Get(DecisionKey); exists {
		if decision, ok := v.(domain.Decision); ok {
			return decision, true
		}
	}
	return domain.Decision{}, false
}
