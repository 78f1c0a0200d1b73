package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/config"
	"github.com/Hexmon/e-dossier-sub007/internal/transport/http/handlers"
	"github.com/Hexmon/e-dossier-sub007/internal/transport/http/middleware"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Permissions *usecase.PermissionService
	Authorize   *usecase.AuthorizeService
	Audit       *usecase.AuditService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config       *config.AppConfig
	Logger       *zap.Logger
	Services     ServiceSet
	Authorizer   *middleware.Authorizer
	Limiter      *usecase.RateLimiter
	Metrics      *middleware.HTTPMetrics
	Database     DatabaseChecker
	Cache        CacheChecker
	RouteActions middleware.RouteActions
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// DefaultRouteActions maps every protected route onto its action. The table
// is validated at startup; a request for a protected route missing from it
// is rejected with 400.
func DefaultRouteActions() middleware.RouteActions {
	return middleware.RouteActions{
		middleware.RouteKey("POST", "/api/v1/admin/permissions"):               domain.ActionRoleManage,
		middleware.RouteKey("GET", "/api/v1/admin/permissions/:key"):           domain.ActionRoleManage,
		middleware.RouteKey("DELETE", "/api/v1/admin/permissions/:key"):        domain.ActionRoleManage,
		middleware.RouteKey("POST", "/api/v1/admin/roles"):                     domain.ActionRoleManage,
		middleware.RouteKey("GET", "/api/v1/admin/roles/:key/permissions"):     domain.ActionRoleManage,
		middleware.RouteKey("PUT", "/api/v1/admin/roles/:key/permissions"):     domain.ActionRoleManage,
		middleware.RouteKey("POST", "/api/v1/admin/positions"):                 domain.ActionRoleManage,
		middleware.RouteKey("GET", "/api/v1/admin/positions/:key/permissions"): domain.ActionRoleManage,
		middleware.RouteKey("PUT", "/api/v1/admin/positions/:key/permissions"): domain.ActionRoleManage,
		middleware.RouteKey("PUT", "/api/v1/admin/field-rules"):                domain.ActionRoleManage,
		middleware.RouteKey("DELETE", "/api/v1/admin/field-rules/:id"):         domain.ActionRoleManage,
		middleware.RouteKey("GET", "/api/v1/audit/events"):                     domain.ActionAuditRead,
	}
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routeActions := deps.RouteActions
	if routeActions == nil {
		routeActions = DefaultRouteActions()
	}

	api := r.Group("/api/v1")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter, usecase.PurposeAPI, middleware.ClientIPIdentifier(), deps.Logger))
	}
	{
		guard := deps.Authorizer.Guard(routeActions)

		admin := api.Group("/admin")
		admin.Use(guard)

		permissionHandler := handlers.NewPermissionHandler(deps.Services.Permissions, deps.Services.Audit)
		admin.POST("/permissions", permissionHandler.Create)
		admin.GET("/permissions/:key", permissionHandler.Get)
		admin.DELETE("/permissions/:key", permissionHandler.Delete)

		subjectHandler := handlers.NewSubjectHandler(deps.Services.Permissions, deps.Services.Audit)
		admin.POST("/roles", subjectHandler.CreateRole)
		admin.GET("/roles/:key/permissions", permissionHandler.ListForRole)
		admin.PUT("/roles/:key/permissions", subjectHandler.ReplaceRoleMappings)
		admin.POST("/positions", subjectHandler.CreatePosition)
		admin.GET("/positions/:key/permissions", permissionHandler.ListForPosition)
		admin.PUT("/positions/:key/permissions", subjectHandler.ReplacePositionMappings)

		fieldRuleHandler := handlers.NewFieldRuleHandler(deps.Services.Permissions, deps.Services.Audit)
		admin.PUT("/field-rules", fieldRuleHandler.Upsert)
		admin.DELETE("/field-rules/:id", fieldRuleHandler.Delete)

		auditHandler := handlers.NewAuditHandler(deps.Services.Audit)
		api.GET("/audit/events", guard, auditHandler.ListEvents)

		decisionHandler := handlers.NewDecisionHandler(deps.Services.Authorize)
		api.POST("/authz/decisions", deps.Authorizer.Authenticate(), decisionHandler.Evaluate)
	}

	return r
}
