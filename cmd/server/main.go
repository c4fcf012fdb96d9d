package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	feeapp "github.com/feeledger/backend/internal/application/fee"
	"github.com/feeledger/backend/internal/domain/fee"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/infrastructure/audit"
	"github.com/feeledger/backend/internal/infrastructure/auth"
	"github.com/feeledger/backend/internal/infrastructure/cache"
	"github.com/feeledger/backend/internal/infrastructure/config"
	"github.com/feeledger/backend/internal/infrastructure/event"
	"github.com/feeledger/backend/internal/infrastructure/logger"
	"github.com/feeledger/backend/internal/infrastructure/persistence"
	"github.com/feeledger/backend/internal/infrastructure/storage"
	"github.com/feeledger/backend/internal/infrastructure/telemetry"
	"github.com/feeledger/backend/internal/interfaces/http/handler"
	"github.com/feeledger/backend/internal/interfaces/http/middleware"
	"github.com/feeledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/feeledger/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Fee Ledger API
//	@version		1.0
//	@description	Annual client fees, actual payments, letter tracking and the collections dashboard

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap logger until the OTLP log bridge is ready
	bootLog := logger.New(cfg.Log)
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	log := logger.New(cfg.Log, logProvider.ZapCore())
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fee ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}

	var profiler *telemetry.Profiler
	if cfg.Telemetry.ProfilingEnabled {
		profiler, err = telemetry.NewProfiler(cfg.Telemetry, log)
		if err != nil {
			log.Warn("Continuous profiling unavailable", zap.Error(err))
		} else {
			tracerProvider.EnableSpanProfiles()
		}
	}

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithPreparedStatements(!cfg.Database.DisablePreparedStatements),
		persistence.WithHook(func(gdb *gorm.DB) error {
			if err := telemetry.RegisterDBTracing(gdb, cfg.Telemetry, log); err != nil {
				log.Warn("Database tracing not registered", zap.Error(err))
			}
			return nil
		}),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	kvCache, err := cache.NewCache(cfg.Redis, shared.CacheConfig{
		DefaultTTL: cfg.Fee.KPICacheTTL,
		KeyPrefix:  cfg.App.Name + ":",
	}, cache.WithLogger(log), cache.WithInMemoryFallback(cfg.App.Env != "production"))
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}

	// Repositories
	feeRepo := persistence.NewGormFeeCalculationRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	deviationRepo := persistence.NewGormDeviationRepository(db.DB)
	classifier := persistence.NewGormDeviationClassifier(db.DB)
	disputeRepo := persistence.NewGormDisputeRepository(db.DB)
	letterRepo := persistence.NewGormLetterTrackingRepository(db.DB)
	collectionRepo := persistence.NewGormCollectionRepository(db.DB)
	rollupRepo := persistence.NewGormRollupRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	clientResolver := persistence.NewCachedClientResolver(
		persistence.NewGormClientRepository(db.DB), kvCache, time.Hour, log)

	// Domain events feed the audit log
	eventBus := event.NewInMemoryEventBus(log,
		event.WithTracer(tracerProvider.Tracer("feeledger/events")),
		event.WithFailureHook(func(ctx context.Context, e shared.DomainEvent, err error) {
			logger.L(ctx).Error("Event handler failed",
				zap.String("event_type", e.EventType()),
				zap.Error(err),
			)
		}),
	)
	eventBus.Subscribe(audit.NewSink(auditRepo, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	feeMetrics, err := telemetry.NewFeeMetrics(meterProvider.Meter("feeledger/fees"), log)
	if err != nil {
		log.Warn("Fee metrics unavailable", zap.Error(err))
	}

	// Application services
	calculator := fee.NewCalculator(cfg.Fee.VATRate)
	feeService := feeapp.NewFeeCalculationService(feeRepo, calculator, kvCache, log)
	paymentService := feeapp.NewPaymentService(feeRepo, paymentRepo, deviationRepo, classifier, cfg.Fee.VATRate, kvCache, log)
	idempotency := cache.NewIdempotencyStore(kvCache)
	paymentService.SetIdempotencyStore(idempotency, shared.IdempotencyConfig{
		TTL:     cfg.Fee.IdempotencyTTL,
		Enabled: true,
	})
	unopened, noSelection, abandoned := cfg.Fee.AlertThresholdDurations()
	collectionService := feeapp.NewCollectionService(collectionRepo, kvCache, feeapp.CollectionOptions{
		Thresholds: fee.AlertThresholds{
			UnopenedAfter:    unopened,
			NoSelectionAfter: noSelection,
			AbandonedAfter:   abandoned,
		},
		CacheTTL: cfg.Fee.KPICacheTTL,
		Locale:   cfg.Fee.CollationLocale,
	}, log)
	rollupService := feeapp.NewGroupRollupService(rollupRepo, cfg.Fee.CollationLocale, log)
	disputeService := feeapp.NewDisputeService(disputeRepo, feeRepo, kvCache, log)
	letterService := feeapp.NewLetterTrackingService(letterRepo, feeService, kvCache, log)
	auditService := feeapp.NewAuditTrailService(auditRepo)

	for _, svc := range []interface {
		SetEventPublisher(shared.EventPublisher)
		SetMetrics(*telemetry.FeeMetrics)
	}{feeService, paymentService, collectionService, rollupService, disputeService, letterService} {
		svc.SetEventPublisher(eventBus)
		svc.SetMetrics(feeMetrics)
	}

	if cfg.Storage.Enabled() {
		attachments, err := storage.NewS3AttachmentStorage(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Warn("Attachment storage unavailable, download URLs disabled", zap.Error(err))
		} else {
			paymentService.SetAttachmentSigner(attachments, cfg.Storage.PresignExpiration)
			log.Info("Attachment storage ready", zap.String("bucket", attachments.Bucket()))
		}
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", func(context.Context) error { return db.Ping() }).
		AddCheck("cache", func(ctx context.Context) error {
			var marker string
			_, err := kvCache.Get(ctx, "health:check", &marker)
			return err
		})

	handlers := router.Handlers{
		Fees:        handler.NewFeeCalculationHandler(feeService, clientResolver),
		Payments:    handler.NewPaymentHandler(paymentService),
		Letters:     handler.NewLetterHandler(letterService),
		Collections: handler.NewCollectionHandler(collectionService, rollupService),
		Disputes:    handler.NewDisputeHandler(disputeService),
		Audit:       handler.NewAuditHandler(auditService),
		System:      systemHandler,
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: request ID first so every later log line carries it,
	// tracing before metrics so metrics see the span.
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
		Logger:        log,
	}))

	engine.GET("/health", systemHandler.Health)

	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Verifier:  auth.NewJWTVerifier(cfg.JWT),
		SkipPaths: []string{"/api/v1/system/info"},
		Logger:    log,
	})
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	apiMiddleware := []gin.HandlerFunc{
		jwtAuth,
		middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
			HeaderEnabled: cfg.App.Env != "production",
			Required:      true,
			SkipPaths:     []string{"/api/v1/system/info"},
			Logger:        log,
		}),
		middleware.TracingAttributeInjector(),
		middleware.Profiling(middleware.ProfilingConfig{
			Enabled:   profiler != nil && profiler.IsEnabled(),
			SkipPaths: []string{"/api/v1/system/info"},
		}),
	}
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		go limiter.Run(ctx)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithMiddleware(apiMiddleware...))
	r.Register(router.FeeLedgerGroups(handlers)...)
	r.Setup()
	log.Debug("Routes registered", zap.Int("count", len(r.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := idempotency.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if err := kvCache.Close(); err != nil {
		log.Error("Error closing cache", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
