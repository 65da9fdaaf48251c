package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	partnerapp "github.com/bookkeeper/backend/internal/application/partner"
	settlementapp "github.com/bookkeeper/backend/internal/application/settlement"
	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/bookkeeper/backend/internal/infrastructure/auth"
	"github.com/bookkeeper/backend/internal/infrastructure/cache"
	"github.com/bookkeeper/backend/internal/infrastructure/config"
	"github.com/bookkeeper/backend/internal/infrastructure/event"
	"github.com/bookkeeper/backend/internal/infrastructure/logger"
	"github.com/bookkeeper/backend/internal/infrastructure/persistence"
	"github.com/bookkeeper/backend/internal/infrastructure/telemetry"
	"github.com/bookkeeper/backend/internal/interfaces/http/handler"
	"github.com/bookkeeper/backend/internal/interfaces/http/middleware"
	"github.com/bookkeeper/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// dbPoolInterval is how often connection pool gauges are sampled
const dbPoolInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.App.Name, cfg.App.Version))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry providers install themselves as the otel globals
	tel := setupTelemetry(ctx, cfg, log)
	defer tel.shutdown(log)
	log = tel.logs.Bridge(log)

	log.Info("Starting bookkeeping backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("currency", cfg.Settlement.Currency),
	)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	meter := tel.metrics.Meter(cfg.Telemetry.ServiceName)
	if sqlDB, err := db.DB.DB(); err == nil {
		poolMetrics, err := telemetry.NewDBPoolMetrics(meter, sqlDB, dbPoolInterval, log)
		if err != nil {
			log.Warn("Failed to create database pool metrics", zap.Error(err))
		} else {
			poolMetrics.Start(ctx)
			defer poolMetrics.Stop()
		}
	}

	settlementMetrics, err := telemetry.NewSettlementMetrics(meter, log)
	if err != nil {
		log.Warn("Failed to create settlement metrics", zap.Error(err))
	}

	// Idempotency store shared by the HTTP Idempotency-Key guard and the
	// event handlers
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idemStore, err := storeFactory.CreateStore(ctx, cfg.Settlement.IdempotencyBackend)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if rs, ok := idemStore.(*cache.RedisIdempotencyStore); ok {
		blacklist = auth.NewRedisTokenBlacklist(rs.Client())
	}

	currency := valueobject.Currency(cfg.Settlement.Currency)

	// Events are published after commit; the activity log is their only
	// in-process consumer
	eventBus := event.NewInMemoryEventBus(log)
	idemConfig := shared.DefaultIdempotencyConfig()
	idemConfig.TTL = cfg.Settlement.IdempotencyTTL
	activityLog := event.NewIdempotentHandler(
		settlementapp.NewActivityLogHandler(log, currency),
		idemStore,
		log,
		event.WithIdempotencyConfig(idemConfig),
	)
	eventBus.Subscribe(activityLog)
	log.Info("Event handlers registered", zap.Strings("activity_log_events", activityLog.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Repositories and application services
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	ledgerEntryRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	ledgerWriter := persistence.NewGormLedgerWriter(db.DB, cfg.Settlement.TransactionTimeout, log)

	settlementService := settlementapp.NewSettlementService(
		ledgerWriter,
		settlement.NewEngine(),
		eventBus,
		settlementMetrics,
		log,
	)
	documentService := settlementapp.NewDocumentService(
		documentRepo,
		ledgerEntryRepo,
		invoiceRepo,
		partnerapp.NewCustomerResolver(customerRepo, log),
		numbering.NewGenerator(),
		eventBus,
		log,
	)
	documentService.SetDefaultCurrency(currency)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.Auth)
	authConfig := middleware.DefaultJWTConfig(jwtService)
	authConfig.TokenBlacklist = blacklist
	authConfig.Logger = log
	authConfig.SkipPaths = append(authConfig.SkipPaths, "/ping", "/api/v1/ping")

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.HTTPMetrics(meter, log),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.OwnerAuthWithConfig(authConfig),
		middleware.SpanAttributes(),
		middleware.Profiling(cfg.Telemetry.ProfilingEnabled),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Version, db.PingContext)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ping", systemHandler.Ping)

	groups := router.Bookkeeping(router.Handlers{
		Documents:  handler.NewDocumentHandler(documentService),
		Settlement: handler.NewSettlementHandler(settlementService),
		System:     systemHandler,
	}, router.Options{
		Idempotency: middleware.Idempotency(middleware.IdempotencyConfig{
			Store:   idemStore,
			TTL:     cfg.Settlement.IdempotencyTTL,
			Metrics: settlementMetrics,
			Logger:  log,
		}),
	})

	r := router.NewRouter(engine)
	r.Register(router.Registrars(groups)...).Setup()

	routeCount := 0
	for _, g := range groups {
		routeCount += len(g.Routes(r.BasePath()))
	}
	log.Info("Routes registered", zap.Int("count", routeCount), zap.String("base_path", r.BasePath()))

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

type telemetryProviders struct {
	tracer   *telemetry.TracerProvider
	metrics  *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// setupTelemetry starts every configured exporter. A provider that fails to
// start is logged and replaced by its disabled form.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryProviders {
	tc := cfg.Telemetry
	t := &telemetryProviders{}
	var err error

	t.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		t.tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}

	t.metrics, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics disabled", zap.Error(err))
		t.metrics, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	t.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          tc.Insecure,
		Level:             cfg.Log.Level,
	}, log)
	if err != nil {
		log.Warn("Log export disabled", zap.Error(err))
		t.logs, _ = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, log)
	}

	t.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           tc.ProfilingEnabled,
		ServerAddress:     tc.ProfilingServer,
		ApplicationName:   tc.ServiceName,
		BasicAuthUser:     tc.ProfilingUser,
		BasicAuthPassword: tc.ProfilingPassword,
		ProfileCPU:        true,
		ProfileAlloc:      true,
		ProfileInuse:      true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Warn("Profiling disabled", zap.Error(err))
		t.profiler, _ = telemetry.NewProfiler(telemetry.ProfilerConfig{}, log)
	}

	if tc.ProfilingEnabled && tc.ProfilingSpanProfile && t.tracer.IsEnabled() {
		if err := t.tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles disabled", zap.Error(err))
		}
	}

	return t
}

// shutdown flushes exporters in reverse start order
func (t *telemetryProviders) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down log exporter", zap.Error(err))
	}
	if err := t.metrics.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
}
