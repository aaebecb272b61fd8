package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/adboard/backend/internal/application/integration"
	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/domain/shared"
	"github.com/adboard/backend/internal/infrastructure/adplatform"
	"github.com/adboard/backend/internal/infrastructure/cache"
	"github.com/adboard/backend/internal/infrastructure/config"
	"github.com/adboard/backend/internal/infrastructure/logger"
	"github.com/adboard/backend/internal/infrastructure/persistence"
	"github.com/adboard/backend/internal/infrastructure/scheduler"
	"github.com/adboard/backend/internal/interfaces/http/handler"
	"github.com/adboard/backend/internal/interfaces/http/middleware"
	"github.com/adboard/backend/internal/interfaces/http/router"
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

	log.Info("Starting Adboard Integrations",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
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

	// Initialize repositories
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	subscriptionRepo := persistence.NewGormWebhookSubscriptionRepository(db.DB)
	metricRepo := persistence.NewGormMetricRepository(db.DB)

	credentialStore, err := persistence.NewSealedCredentialStore(db.DB, cfg.Credentials.SealingKeyBytes())
	if err != nil {
		log.Fatal("Failed to initialize credential store", zap.Error(err))
	}

	// Register platform adapters. Platforms without configured API
	// credentials stay unregistered and report as unavailable.
	registry := adplatform.NewRegistry()
	registerAdapters(registry, cfg, log)

	// Connection status projection, warmed from storage before traffic
	statusRegistry := appintegration.NewStatusRegistry()
	if err := statusRegistry.Warm(context.Background(), connectionRepo); err != nil {
		log.Fatal("Failed to warm connection status registry", zap.Error(err))
	}

	// Sync scheduler: executor + bounded worker pool + cron trigger
	executor := scheduler.NewSyncExecutor(registry, connectionRepo, credentialStore, metricRepo, statusRegistry, log)

	schedConfig := scheduler.SyncSchedulerConfig{
		Enabled:          true,
		WorkerCount:      cfg.Sync.WorkerCount,
		QueueSize:        cfg.Sync.QueueSize,
		JobTimeout:       cfg.Sync.JobTimeout,
		RetryMaxAttempts: cfg.Sync.RetryMaxAttempts,
		RetryBaseDelay:   cfg.Sync.RetryInitialInterval,
		RetryMaxDelay:    cfg.Sync.RetryMaxInterval,
	}
	syncScheduler, err := scheduler.NewSyncScheduler(schedConfig, executor, log)
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}
	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	defer func() {
		if err := syncScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}()

	cronConfig := scheduler.DefaultSyncCronTriggerConfig()
	cronConfig.CheckInterval = cfg.Sync.CronCheckInterval
	cronTrigger := scheduler.NewSyncCronTrigger(cronConfig, syncScheduler, connectionRepo, log)
	if err := cronTrigger.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync cron trigger", zap.Error(err))
	}
	defer func() {
		if err := cronTrigger.Stop(context.Background()); err != nil {
			log.Error("Error stopping sync cron trigger", zap.Error(err))
		}
	}()

	// Webhook deduplication store: Redis when available, in-memory otherwise
	var dedupStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisIdempotencyStore(cache.RedisIdempotencyStoreConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		dedupStore = redisStore
		log.Info("Webhook deduplication backed by Redis",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		dedupStore = cache.NewInMemoryIdempotencyStore(time.Minute)
		log.Info("Webhook deduplication backed by in-memory store")
	}
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing deduplication store", zap.Error(err))
		}
	}()

	// Initialize application services
	connectionService := appintegration.NewConnectionService(
		registry,
		connectionRepo,
		credentialStore,
		subscriptionRepo,
		syncScheduler,
		metricRepo,
		statusRegistry,
		log,
	)
	webhookService := appintegration.NewWebhookService(
		registry,
		connectionRepo,
		subscriptionRepo,
		dedupStore,
		shared.IdempotencyConfig{
			TTL:     cfg.Webhook.DedupTTL,
			Enabled: cfg.Webhook.DedupEnabled,
		},
		syncScheduler,
		statusRegistry,
		log,
	)

	// Initialize HTTP handlers
	integrationHandler := handler.NewIntegrationHandler(connectionService)
	webhookLimiter := middleware.NewRateLimiter(cfg.Webhook.RateLimitPerMinute, time.Minute)
	webhookHandler := handler.NewWebhookHandler(webhookService,
		middleware.WebhookRateLimit(webhookLimiter),
		middleware.BodyLimit(cfg.Webhook.MaxPayloadBytes),
	)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID, panic recovery, request logging,
	// security headers, CORS, body limit, tenant identification
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
		SkipPaths: []string{
			"/health",
			"/api/v1/webhooks",
			"/api/v1/system",
		},
		Required: true,
		Logger:   log,
	}))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	// API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(integrationHandler).
		Register(webhookHandler)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	r.Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// registerAdapters registers every platform adapter whose API credentials
// are present in the configuration
func registerAdapters(registry *adplatform.Registry, cfg *config.Config, log *zap.Logger) {
	if cfg.Platforms.MetaConfigured() {
		metaConfig := adplatform.NewMetaAdsConfig(cfg.Platforms.Meta.AppID, cfg.Platforms.Meta.AppSecret)
		for _, code := range []integration.PlatformCode{
			integration.PlatformCodeFacebookAds,
			integration.PlatformCodeInstagram,
		} {
			adapter, err := adplatform.NewMetaAdsAdapter(code, metaConfig)
			if err != nil {
				log.Fatal("Failed to create Meta adapter", zap.String("platform_code", string(code)), zap.Error(err))
			}
			registry.Register(adapter)
			log.Info("Platform adapter registered", zap.String("platform_code", string(code)))
		}
	} else {
		log.Warn("Meta app credentials not configured, Facebook Ads and Instagram unavailable")
	}

	if cfg.Platforms.GoogleAdsConfigured() {
		googleConfig := adplatform.NewGoogleAdsConfig(
			cfg.Platforms.GoogleAds.ClientID,
			cfg.Platforms.GoogleAds.ClientSecret,
			cfg.Platforms.GoogleAds.DeveloperToken,
		)
		googleConfig.WebhookSecret = cfg.Platforms.GoogleAds.WebhookSecret
		adapter, err := adplatform.NewGoogleAdsAdapter(googleConfig)
		if err != nil {
			log.Fatal("Failed to create Google Ads adapter", zap.Error(err))
		}
		registry.Register(adapter)
		log.Info("Platform adapter registered", zap.String("platform_code", "GOOGLE_ADS"))
	} else {
		log.Warn("Google Ads API credentials not configured, Google Ads unavailable")
	}
}
