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

	billingapp "github.com/hms/backend/internal/application/billing"
	patientapp "github.com/hms/backend/internal/application/patient"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/cache"
	"github.com/hms/backend/internal/infrastructure/config"
	"github.com/hms/backend/internal/infrastructure/event"
	"github.com/hms/backend/internal/infrastructure/logger"
	"github.com/hms/backend/internal/infrastructure/persistence"
	"github.com/hms/backend/internal/infrastructure/scheduler"
	"github.com/hms/backend/internal/interfaces/http/handler"
	"github.com/hms/backend/internal/interfaces/http/middleware"
	"github.com/hms/backend/internal/interfaces/http/router"
)

//	@title			HMS Billing API
//	@version		1.0
//	@description	Hospital administration billing backend

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting HMS Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Initialize repositories
	billRepo := persistence.NewGormBillRepository(db.DB)
	patientRepo := persistence.NewGormPatientRepository(db.DB)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Balance cache: Redis when enabled, falling back to in-process cache
	// when Redis is unreachable
	var balanceCache cache.BalanceCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisBalanceCache(&cfg.Redis,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithLogger(log),
		)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory balance cache", zap.Error(err))
			balanceCache = cache.NewInMemoryBalanceCache(cfg.Cache.TTL)
		} else {
			balanceCache = redisCache
		}
		defer func() {
			if err := balanceCache.Close(); err != nil {
				log.Error("Error closing balance cache", zap.Error(err))
			}
		}()

		// Cached totals are invalidated whenever a billing event moves them
		invalidationHandler := cache.NewBalanceInvalidationHandler(balanceCache, log)
		eventBus.Subscribe(invalidationHandler, invalidationHandler.EventTypes()...)
		log.Info("Balance cache enabled",
			zap.Duration("ttl", cfg.Cache.TTL),
			zap.Strings("invalidation_events", invalidationHandler.EventTypes()),
		)
	}

	// Initialize application services
	clock := shared.SystemClock{}
	ledgerService := billingapp.NewLedgerService(billRepo, patientRepo, eventBus, clock, log)
	balanceService := billingapp.NewBalanceService(billRepo, patientRepo, balanceCache, log)
	patientService := patientapp.NewPatientService(patientRepo, log)

	var scannerOpts []billingapp.OverdueScannerOption
	if cfg.Sweep.BatchSize > 0 {
		scannerOpts = append(scannerOpts, billingapp.WithSweepBatchSize(cfg.Sweep.BatchSize))
	}
	overdueScanner := billingapp.NewOverdueScanner(billRepo, eventBus, clock, ledgerService, log, scannerOpts...)

	// Start the periodic overdue sweep (if enabled)
	if cfg.Sweep.Enabled {
		sweepScheduler, err := scheduler.NewSweepScheduler(scheduler.SweepSchedulerConfig{
			Enabled:       cfg.Sweep.Enabled,
			CheckInterval: cfg.Sweep.CheckInterval,
			RunOnStart:    true,
		}, sweepRunner{scanner: overdueScanner}, log)
		if err != nil {
			log.Fatal("Failed to create sweep scheduler", zap.Error(err))
		}
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sweep scheduler", zap.Error(err))
		}
		defer func() {
			if err := sweepScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping sweep scheduler", zap.Error(err))
			}
		}()
		log.Info("Overdue sweep scheduler started",
			zap.Duration("check_interval", cfg.Sweep.CheckInterval),
			zap.Int("batch_size", cfg.Sweep.BatchSize),
		)
	}

	// Initialize HTTP handlers
	billingHandler := handler.NewBillingHandler(ledgerService, overdueScanner, balanceService)
	patientHandler := handler.NewPatientHandler(patientService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Register API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(billingHandler)
	r.Register(patientHandler)
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
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

// sweepRunner adapts the application-layer scanner to the scheduler contract
type sweepRunner struct {
	scanner *billingapp.OverdueScanner
}

func (r sweepRunner) RunSweep(ctx context.Context) (scheduler.SweepOutcome, error) {
	result, err := r.scanner.RunSweep(ctx)
	return scheduler.SweepOutcome{
		Scanned:    result.Scanned,
		Flagged:    result.Flagged,
		Failed:     result.Failed,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}, err
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
