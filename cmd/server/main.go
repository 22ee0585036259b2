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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appbanking "github.com/treasury/backend/internal/application/banking"
	apppayment "github.com/treasury/backend/internal/application/payment"
	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/infrastructure/auth"
	"github.com/treasury/backend/internal/infrastructure/config"
	"github.com/treasury/backend/internal/infrastructure/event"
	"github.com/treasury/backend/internal/infrastructure/lock"
	"github.com/treasury/backend/internal/infrastructure/logger"
	"github.com/treasury/backend/internal/infrastructure/persistence"
	"github.com/treasury/backend/internal/infrastructure/posting"
	"github.com/treasury/backend/internal/interfaces/http/handler"
	"github.com/treasury/backend/internal/interfaces/http/middleware"
	"github.com/treasury/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting treasury backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
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
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	accountRepo := persistence.NewGormBankAccountRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Per-payment critical section. The in-process keyed mutex is enough for
	// a single instance; multiple instances sharing a database need the
	// Redis-backed locker.
	var locker apppayment.PaymentLocker
	if cfg.Lock.Distributed {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		locker = lock.NewRedisLocker(redisClient, log)
		log.Info("Distributed payment locking enabled", zap.String("redis", cfg.Redis.Addr()))
	} else {
		locker = lock.NewKeyedMutex()
	}

	// Signature policy from config
	policy, err := signaturePolicyFromConfig(cfg.Policy)
	if err != nil {
		log.Fatal("Invalid signature policy configuration", zap.Error(err))
	}

	// Posting trigger and event bus
	poster := posting.NewGormJournalPoster(db.DB, log)
	eventBus := event.NewInMemoryEventBus(log)

	// Application services
	paymentService := apppayment.NewPaymentService(
		paymentRepo, accountRepo, txScope, locker, policy, poster, eventBus, log,
	)
	paymentService.SetLockTimeout(cfg.Lock.Timeout)
	accountService := appbanking.NewAccountService(accountRepo, ledgerRepo, eventBus, log)

	// JWT service for approver authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	paymentHandler := handler.NewPaymentHandler(paymentService)
	accountHandler := handler.NewBankAccountHandler(accountService)
	systemHandler := handler.NewSystemHandler(db)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom request validations (iban, currency)
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so recovery and logging can tag
	// their output, then panic recovery, request logging, CORS, and JWT auth.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
		MaxAge:       12 * time.Hour,
	}))
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/ready"},
		Logger:     log,
	}))

	// Routes
	router.NewRouter(engine, router.WithSystemHandler(systemHandler)).
		Register(router.NewPaymentRoutes(paymentHandler)).
		Register(router.NewAccountRoutes(accountHandler)).
		Setup()

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

// signaturePolicyFromConfig builds the tiered signature policy: one
// signature below tier 1, two below tier 2, three at or above it.
func signaturePolicyFromConfig(cfg config.PolicyConfig) (*payment.SignaturePolicy, error) {
	tier1, err := decimal.NewFromString(cfg.Tier1Threshold)
	if err != nil {
		return nil, err
	}
	tier2, err := decimal.NewFromString(cfg.Tier2Threshold)
	if err != nil {
		return nil, err
	}
	return payment.NewSignaturePolicy(1, []payment.SignatureTier{
		{Threshold: tier1, Signatures: 2},
		{Threshold: tier2, Signatures: 3},
	})
}
