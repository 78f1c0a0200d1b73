package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/config"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/database"
	kafkainfra "github.com/Hexmon/e-dossier-sub007/internal/infra/kafka"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/logger"
	redisinfra "github.com/Hexmon/e-dossier-sub007/internal/infra/redis"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/security"
	"github.com/Hexmon/e-dossier-sub007/internal/infra/telemetry"
	memoryrepo "github.com/Hexmon/e-dossier-sub007/internal/repository/memory"
	postgresrepo "github.com/Hexmon/e-dossier-sub007/internal/repository/postgres"
	redisrepo "github.com/Hexmon/e-dossier-sub007/internal/repository/redis"
	"github.com/Hexmon/e-dossier-sub007/internal/transport/http/middleware"
	"github.com/Hexmon/e-dossier-sub007/internal/transport/http/routes"
	"github.com/Hexmon/e-dossier-sub007/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	resolver, err := security.NewJWTPrincipalResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init principal resolver: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var redisClient *redisinfra.Client
	if strings.EqualFold(cfg.RateLimit.Store, "redis") {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
	}

	var publisher port.AuditPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewAuditPublisher(producer, cfg.App, log)
			log.Info("kafka audit publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	cache := usecase.NewPermissionCache(repos.Roles, repos.Positions, repos.Permissions, repos.FieldRules, cfg.Authz.CacheTTL)

	actions := usecase.DefaultActionPermissions()
	if err := actions.Validate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("validate action table: %w", err)
	}

	routeActions := routes.DefaultRouteActions()
	if err := routeActions.Validate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("validate route table: %w", err)
	}

	authorizeService := usecase.NewAuthorizeService(cache, actions, log)
	permissionService := usecase.NewPermissionService(repos.Permissions, repos.Roles, repos.Positions, repos.FieldRules, cache)
	auditService := usecase.NewAuditService(repos.Audit, publisher, log)

	limiter := buildRateLimiter(cfg, redisClient, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	authorizer := middleware.NewAuthorizer(resolver, authorizeService, auditService, log).
		WithBypass(cfg.Authz.Bypass).
		WithMetrics(metrics)
	if cfg.Authz.Bypass {
		log.Warn("authorization enforcement bypass enabled")
	}

	deps := routes.Dependencies{
		Config:     cfg,
		Logger:     log,
		Authorizer: authorizer,
		Limiter:    limiter,
		Metrics:    metrics,
		Database:   pool,
		Services: routes.ServiceSet{
			Permissions: permissionService,
			Authorize:   authorizeService,
			Audit:       auditService,
		},
		RouteActions: routeActions,
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

func buildRateLimiter(cfg *config.AppConfig, redisClient *redisinfra.Client, log *zap.Logger) *usecase.RateLimiter {
	configs := map[usecase.Purpose]usecase.PurposeConfig{
		usecase.PurposeLogin:         {MaxRequests: cfg.RateLimit.LoginMax, Window: cfg.RateLimit.LoginWindow},
		usecase.PurposeSignup:        {MaxRequests: cfg.RateLimit.SignupMax, Window: cfg.RateLimit.SignupWindow},
		usecase.PurposePasswordReset: {MaxRequests: cfg.RateLimit.PasswordResetMax, Window: cfg.RateLimit.PasswordResetWindow},
		usecase.PurposeAPI:           {MaxRequests: cfg.RateLimit.APIMax, Window: cfg.RateLimit.APIWindow},
	}
	for purpose, pc := range usecase.DefaultPurposeConfigs() {
		current := configs[purpose]
		if current.MaxRequests <= 0 {
			current.MaxRequests = pc.MaxRequests
		}
		if current.Window <= 0 {
			current.Window = pc.Window
		}
		configs[purpose] = current
	}

	var primary port.CounterStore
	if redisClient != nil {
		primary = redisrepo.NewCounterStore(redisClient.Client(), redisrepo.CounterConfig{
			KeyPrefix: cfg.Redis.CounterPrefix,
			TTL:       cfg.Redis.CounterTTL,
		})
	} else {
		log.Info("rate limiter using in-process counter store")
		primary = memoryrepo.NewCounterStore()
	}

	limiter := usecase.NewRateLimiter(primary, configs, log)
	if redisClient != nil && cfg.RateLimit.FallbackEnabled {
		limiter = limiter.WithFallback(memoryrepo.NewCounterStore())
	}

	return limiter
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting access-control API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
