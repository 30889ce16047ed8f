package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	catalogapp "github.com/mezze/backend/internal/application/catalog"
	ingestapp "github.com/mezze/backend/internal/application/ingestion"
	partnerapp "github.com/mezze/backend/internal/application/partner"
	reportapp "github.com/mezze/backend/internal/application/report"
	resolutionapp "github.com/mezze/backend/internal/application/resolution"
	tradeapp "github.com/mezze/backend/internal/application/trade"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/infrastructure/auth"
	"github.com/mezze/backend/internal/infrastructure/config"
	"github.com/mezze/backend/internal/infrastructure/event"
	"github.com/mezze/backend/internal/infrastructure/logger"
	"github.com/mezze/backend/internal/infrastructure/persistence"
	"github.com/mezze/backend/internal/infrastructure/runlock"
	"github.com/mezze/backend/internal/infrastructure/scheduler"
	"github.com/mezze/backend/internal/infrastructure/sources"
	"github.com/mezze/backend/internal/infrastructure/sources/csvdrop"
	"github.com/mezze/backend/internal/infrastructure/sources/gmail"
	"github.com/mezze/backend/internal/infrastructure/sources/mbox"
	"github.com/mezze/backend/internal/infrastructure/sources/sheets"
	"github.com/mezze/backend/internal/infrastructure/storage"
	"github.com/mezze/backend/internal/infrastructure/telemetry"
	"github.com/mezze/backend/internal/interfaces/http/handler"
	"github.com/mezze/backend/internal/interfaces/http/middleware"
	"github.com/mezze/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Mezze Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: tracer, meter and log providers export over OTLP; every
	// provider degrades to a no-op when telemetry is disabled.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		log = loggerProvider.NewBridgedLogger(log)
	}

	// Continuous profiling (Pyroscope), plus span profiles when tracing
	// is also on
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingEndpoint,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Database, with the zap-backed GORM logger and query tracing
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
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
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	// Redis backs the distributed run lock and token revocation; without
	// it both fall back to in-process implementations.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))
	}

	// Repositories over the canonical store
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	productUnitRepo := persistence.NewGormProductUnitRepository(db.DB)
	productPriceRepo := persistence.NewGormProductPriceRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	aliasRepo := persistence.NewGormAliasRepository(db.DB)
	recordRepo := persistence.NewGormRecordRepository(db.DB)
	runRepo := persistence.NewGormRunRepository(db.DB)
	seriesRepo := persistence.NewGormTimeSeriesRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Entity resolver: warm the in-memory index before taking traffic
	resolver := resolutionapp.NewService(accountRepo, productRepo, aliasRepo, resolution.Config{
		AcceptThreshold: cfg.Resolver.AcceptThreshold,
		AmbiguityMargin: cfg.Resolver.AmbiguityMargin,
	}, log)
	if err := resolver.Start(ctx); err != nil {
		log.Fatal("Failed to start entity resolver", zap.Error(err))
	}
	defer func() {
		if err := resolver.Stop(context.Background()); err != nil {
			log.Error("Error stopping entity resolver", zap.Error(err))
		}
	}()

	// Source drivers
	registry := sources.NewRegistry()
	if cfg.Ingestion.Sheets.Enabled {
		mustRegister(log, registry, sheets.NewDriver(sheets.Config{
			SpreadsheetID:   cfg.Ingestion.Sheets.SpreadsheetID,
			CredentialsFile: cfg.Ingestion.Sheets.CredentialsFile,
			TokenFile:       cfg.Ingestion.Sheets.TokenFile,
		}, log))
	}
	if cfg.Ingestion.CSV.Enabled {
		mustRegister(log, registry, csvdrop.NewDriver(csvdrop.Config{
			DropDir:    cfg.Ingestion.CSV.DropDir,
			MappingDir: cfg.Ingestion.CSV.MappingDir,
		}, log))
	}
	if cfg.Ingestion.Gmail.Enabled {
		mustRegister(log, registry, gmail.NewDriver(gmail.Config{
			Label:           cfg.Ingestion.Gmail.Label,
			Query:           cfg.Ingestion.Gmail.Query,
			CredentialsFile: cfg.Ingestion.Gmail.CredentialsFile,
			TokenFile:       cfg.Ingestion.Gmail.TokenFile,
			MaxMessages:     cfg.Ingestion.Gmail.MaxMessages,
		}, log))
	}
	if cfg.Ingestion.Mbox.Enabled {
		mustRegister(log, registry, mbox.NewDriver(mbox.Config{
			Path:  cfg.Ingestion.Mbox.Path,
			Label: cfg.Ingestion.Gmail.Label,
		}, log))
	}
	log.Info("Source drivers registered", zap.Int("count", len(registry.List())))

	// Per-source run lock
	var runLock ingestapp.RunLock
	if redisClient != nil {
		runLock = runlock.NewRedisRunLock(redisClient, cfg.Ingestion.RunTimeout, log)
	} else {
		runLock = ingestapp.NewMemoryRunLock()
	}

	// Raw payload archive
	var archiver ingestapp.PayloadArchiver
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3PayloadArchive(&cfg.Archive)
		if err != nil {
			log.Fatal("Failed to initialize payload archive", zap.Error(err))
		}
		archiver = s3Archive
		log.Info("Payload archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	// Event bus and application services
	eventBus := event.NewInMemoryEventBus(log)
	pipeline := ingestapp.NewPipeline(ingestapp.DefaultConfig(), log)
	coordinator := ingestapp.NewCoordinator(
		registry, runRepo, txScope, resolver, pipeline, runLock, eventBus, archiver, log,
	)
	reviewService := ingestapp.NewReviewService(recordRepo, txScope, resolver, pipeline, log)

	accountService := partnerapp.NewAccountService(accountRepo, orderRepo)
	productService := catalogapp.NewProductService(productRepo, productUnitRepo, productPriceRepo)
	orderService := tradeapp.NewOrderService(orderRepo)
	reportService := reportapp.NewService(
		orderRepo, invoiceRepo, paymentRepo, seriesRepo,
		reportapp.NewEntityNamer(accountRepo, productRepo), log,
	)

	// Committed runs refresh the derived series and the run metrics
	eventBus.Subscribe(event.NewRecomputeHandler(reportService, log))
	ingestMetrics, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
		Meter:          meterProvider.Meter("mezze.ingestion"),
		Logger:         log,
		ReviewProvider: reviewService,
	})
	if err != nil {
		log.Fatal("Failed to initialize ingestion metrics", zap.Error(err))
	}
	defer func() {
		if err := ingestMetrics.Close(); err != nil {
			log.Error("Error closing ingestion metrics", zap.Error(err))
		}
	}()
	eventBus.Subscribe(event.NewMetricsHandler(ingestMetrics))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Scheduled ingestion
	if cfg.Ingestion.SchedulerEnabled {
		schedulerCfg := scheduler.Config{
			RunTimeout:    cfg.Ingestion.RunTimeout,
			RetryDelay:    cfg.Ingestion.RetryDelay,
			MaxRetryDelay: cfg.Ingestion.MaxRetryDelay,
			Sources:       scheduledSources(cfg),
		}
		ingestScheduler, err := scheduler.NewIngestScheduler(schedulerCfg, coordinator, log)
		if err != nil {
			log.Fatal("Failed to build ingest scheduler", zap.Error(err))
		}
		if err := ingestScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start ingest scheduler", zap.Error(err))
		}
		defer func() {
			if err := ingestScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping ingest scheduler", zap.Error(err))
			}
		}()
		log.Info("Ingest scheduler started",
			zap.Int("sources", len(schedulerCfg.Sources)),
			zap.Duration("run_timeout", schedulerCfg.RunTimeout),
		)
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	// HTTP handlers
	systemHandler := handler.NewSystemHandler(db.DB)
	ingestionHandler := handler.NewIngestionHandler(coordinator)
	reviewHandler := handler.NewReviewHandler(reviewService)
	accountHandler := handler.NewAccountHandler(accountService)
	productHandler := handler.NewProductHandler(productService)
	orderHandler := handler.NewOrderHandler(orderService)
	reportHandler := handler.NewReportHandler(reportService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: identity and safety first, then auth, then the
	// operator-keyed rate limit (it needs the operator off the token),
	// then observability wrappers around the handlers.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/healthz",
			"/readyz",
			"/api/v1/system/ping",
		},
		Logger: log,
	}))
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled: profiler.IsEnabled(),
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
	}))

	// Liveness and readiness live at the engine root, unauthenticated
	systemHandler.RegisterHealthRoutes(engine)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler)
	r.Register(ingestionHandler)
	r.Register(reviewHandler)
	r.Register(accountHandler)
	r.Register(productHandler)
	r.Register(orderHandler)
	r.Register(reportHandler)
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// mustRegister registers a driver or dies; a duplicate source code is a
// wiring bug
func mustRegister(log *zap.Logger, registry *sources.Registry, driver ingestion.SourceDriver) {
	if err := registry.Register(driver); err != nil {
		log.Fatal("Failed to register source driver",
			zap.String("source_code", driver.SourceCode().String()),
			zap.Error(err),
		)
	}
}

// scheduledSources lists the enabled sources with their poll intervals
func scheduledSources(cfg *config.Config) []scheduler.SourceSchedule {
	var out []scheduler.SourceSchedule
	if cfg.Ingestion.Sheets.Enabled {
		out = append(out, scheduler.SourceSchedule{
			Code:     ingestion.SourceCodeMezze,
			Interval: cfg.Ingestion.Sheets.Interval,
		})
	}
	if cfg.Ingestion.CSV.Enabled {
		out = append(out, scheduler.SourceSchedule{
			Code:     ingestion.SourceCodeCSVDrop,
			Interval: cfg.Ingestion.CSV.Interval,
		})
	}
	if cfg.Ingestion.Gmail.Enabled {
		out = append(out, scheduler.SourceSchedule{
			Code:     ingestion.SourceCodeGmail,
			Interval: cfg.Ingestion.Gmail.Interval,
		})
	}
	if cfg.Ingestion.Mbox.Enabled {
		out = append(out, scheduler.SourceSchedule{
			Code:     ingestion.SourceCodeMboxArchive,
			Interval: cfg.Ingestion.Mbox.Interval,
		})
	}
	return out
}
