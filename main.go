package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecotrail/trail-booking/internal/di"
	"github.com/ecotrail/trail-booking/internal/metrics"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/config"
	"github.com/ecotrail/trail-booking/pkg/database"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/middleware"
	pkgredis "github.com/ecotrail/trail-booking/pkg/redis"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting trail booking service...",
		zap.String("version", cfg.App.Version),
		zap.String("storage", cfg.StorageDriver),
	)

	ctx := context.Background()

	// Initialize tracing
	tel, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
		MetricInterval: cfg.OTel.MetricInterval,
	})
	if err != nil {
		appLog.Warn("Telemetry init failed, continuing without tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(tel.MeterProvider()); err != nil {
		appLog.Warn("Metrics init failed", zap.Error(err))
	}

	loc, _ := cfg.Booking.Location()

	// Storage
	var (
		db  *database.PostgresDB
		txm repository.TxManager
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := repository.NewMemoryStore()
		store.SetLockTimeout(cfg.Booking.LockTimeout)
		store.SeedDemo(time.Now())
		txm = store
		appLog.Info("Using in-memory storage with demo catalog")
	default:
		if err := cfg.ValidateDatabase(); err != nil {
			appLog.Fatal("Invalid database config", zap.Error(err))
		}
		db, err = database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   time.Second,
			EnableTracing:   cfg.OTel.Enabled,
		})
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()
		txm = repository.NewPostgresTxManager(db.Pool(), cfg.Booking.LockTimeout)
		appLog.Info("Database connected", zap.Int("max_conns", cfg.Database.MaxOpenConns))
	}

	// Redis backs request idempotency only; the service runs without it
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: 500 * time.Millisecond,
		})
		if err != nil {
			appLog.Warn("Redis connection failed, idempotency disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:               db,
		Redis:            redisClient,
		TxManager:        txm,
		ProtocolPrefix:   cfg.Booking.ProtocolPrefix,
		ProtocolAttempts: cfg.Booking.ProtocolAttempts,
		Location:         loc,
		DefaultTime:      cfg.Booking.DefaultTime,
		RequestTimeout:   cfg.Booking.RequestTimeout,
		Logger:           appLog,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.Logger(appLog))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	writes := []gin.HandlerFunc{}
	if redisClient != nil {
		writes = append(writes, middleware.IdempotencyMiddleware(middleware.DefaultIdempotencyConfig(redisClient.Client())))
	}

	v1 := router.Group("/api/v1")
	{
		bookings := v1.Group("/bookings")
		bookings.POST("", append(writes, container.BookingHandler.CreateBooking)...)
		bookings.GET("/:protocol", container.BookingHandler.GetBooking)

		v1.GET("/sessions/:id/availability", container.BookingHandler.GetAvailability)

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(&middleware.JWTConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
		}))
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		admin.POST("/bookings", append(writes, container.BookingHandler.CreateAdminBooking)...)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Trail booking service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
