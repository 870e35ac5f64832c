package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ecotrail/trail-booking/internal/repository"
	"github.com/ecotrail/trail-booking/pkg/config"
	"github.com/ecotrail/trail-booking/pkg/database"
	"github.com/ecotrail/trail-booking/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	seed := flag.Bool("seed", false, "insert the demo catalog after applying the schema")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "migrate",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	if err := cfg.ValidateDatabase(); err != nil {
		appLog.Fatal("Invalid database config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      10,
		RetryInterval:   2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := repository.EnsureSchema(ctx, db.Pool()); err != nil {
		appLog.Fatal("Schema migration failed", zap.Error(err))
	}
	appLog.Info("Schema is up to date", zap.String("database", cfg.Database.DBName))

	if *seed {
		if err := repository.SeedDemo(ctx, db.Pool(), time.Now()); err != nil {
			appLog.Fatal("Seeding demo catalog failed", zap.Error(err))
		}
		appLog.Info("Demo catalog seeded")
	}
}
