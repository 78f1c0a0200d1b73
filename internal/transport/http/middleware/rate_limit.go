package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// PrincipalIdentifier scopes limits per authenticated caller, falling back
// to the client IP for anonymous requests.
func PrincipalIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		if principal := GetPrincipal(c); principal.ID != "" {
			return principal.ID, true
		}
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

type rateLimitBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// RateLimit enforces the sliding-window limit for the given purpose. The
// limiter owns window sizes and degraded-mode fallback; the middleware only
// maps results onto headers and the 429 response. A limiter error with no
// usable fallback fails open so a counter outage cannot take down traffic.
func RateLimit(limiter *usecase.RateLimiter, purpose usecase.Purpose, identify IdentifierFunc, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if identify == nil {
		identify = ClientIPIdentifier()
	}

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identifier, ok := identify(c)
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.Check(c.Request.Context(), purpose, identifier)
		if err != nil {
			log.Warn("rate limit check failed, allowing request",
				zap.String("purpose", string(purpose)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if result.Allowed {
			c.Next()
			return
		}

		retrySeconds := int(math.Ceil(result.RetryAfter.Seconds()))
		if retrySeconds < 0 {
			retrySeconds = 0
		}
		headers.Set("Retry-After", strconv.Itoa(retrySeconds))

		log.Info("request rate limited",
			zap.String("purpose", string(purpose)),
			zap.String("trace_id", GetTraceID(c)),
			zap.Bool("degraded", result.Degraded),
		)

		c.AbortWithStatusJSON(http.StatusTooManyRequests, rateLimitBody{
			Error:      "too_many_requests",
			RetryAfter: retrySeconds,
		})
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
