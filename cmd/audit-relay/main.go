package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecotrail/trail-booking/internal/metrics"
	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/internal/worker"
	"github.com/ecotrail/trail-booking/pkg/config"
	"github.com/ecotrail/trail-booking/pkg/database"
	"github.com/ecotrail/trail-booking/pkg/kafka"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"github.com/ecotrail/trail-booking/pkg/retry"
	"github.com/ecotrail/trail-booking/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "audit-relay",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting audit relay...", zap.String("topic", cfg.Relay.Topic))

	if err := cfg.ValidateDatabase(); err != nil {
		appLog.Fatal("Invalid database config", zap.Error(err))
	}
	if err := cfg.ValidateKafka(); err != nil {
		appLog.Fatal("Invalid kafka config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "audit-relay",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
		MetricInterval: cfg.OTel.MetricInterval,
	})
	if err != nil {
		appLog.Warn("Telemetry init failed, continuing without tracing", zap.Error(err))
	}
	if err := metrics.Init(tel.MeterProvider()); err != nil {
		appLog.Warn("Metrics init failed", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      5,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      cfg.Kafka.ClientID + "-audit-relay",
		MaxRetries:    5,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Kafka connection failed", zap.Error(err))
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected", zap.Strings("brokers", cfg.Kafka.Brokers))

	store := repository.NewPostgresStore(db.Pool())
	relay := worker.NewAuditRelayWorker(store.Audit(), producer, &worker.AuditRelayConfig{
		PollInterval: cfg.Relay.PollInterval,
		BatchSize:    cfg.Relay.BatchSize,
		Topic:        cfg.Relay.Topic,
		Retry:        retry.DefaultConfig(),
	}, appLog)

	if err := relay.Start(ctx); err != nil {
		appLog.Fatal("Failed to start audit relay", zap.Error(err))
	}

	<-ctx.Done()
	appLog.Info("Shutting down audit relay...")
	relay.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = telemetry.Shutdown(shutdownCtx)

	appLog.Info("Audit relay exited gracefully")
}
