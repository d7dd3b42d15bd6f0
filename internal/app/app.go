// Package app wires the acquirer's dependencies for the server and the
// operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/honeynil/AdaPayAcquirer/internal/config"
	"github.com/honeynil/AdaPayAcquirer/internal/conversion"
	"github.com/honeynil/AdaPayAcquirer/internal/gateway"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/kafka"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/redis"
	core "github.com/honeynil/AdaPayAcquirer/internal/repository/postgres"
	service "github.com/honeynil/AdaPayAcquirer/internal/services"
	_ "github.com/lib/pq"
)

type App struct {
	Config   *config.Config
	DB       *sql.DB
	Redis    *redis.Client
	Locker   *redis.Locker
	Producer *kafka.Producer
	Service  service.PaymentService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	provider, err := conversion.NewProvider(
		cfg.Acquirer.ConversionProvider,
		cfg.Acquirer.ConversionAPIKey,
		cfg.Acquirer.ConversionTestMode,
		cfg.Acquirer.GatewayTimeout,
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		db.Close()
		return nil, err
	}
	locker := redis.NewLocker(redisClient, cfg.Acquirer.LockTTL)
	producer := kafka.NewProducer(cfg.KafkaBrokers)

	svc, err := service.NewPaymentService(
		core.NewPostgresTransactionRepository(db),
		core.NewPostgresSaleOrderRepository(db),
		gateway.NewAdaPayClient(cfg.Acquirer.APIKey, cfg.Acquirer.TestMode, cfg.Acquirer.BaseURL, cfg.Acquirer.GatewayTimeout),
		conversion.NewCachedProvider(provider, redisClient, cfg.Acquirer.ConversionCacheTTL),
		locker,
		producer,
		cfg.KafkaStateTopic,
		cfg.Acquirer,
	)
	if err != nil {
		producer.Close()
		redisClient.Close()
		db.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Locker:   locker,
		Producer: producer,
		Service:  svc,
	}, nil
}

func (a *App) Close() {
	if err := a.Producer.Close(); err != nil {
		slog.Error("failed to close Kafka producer", "error", err)
	}
	if err := a.Redis.Close(); err != nil {
		slog.Error("failed to close Redis client", "error", err)
	}
	if err := a.DB.Close(); err != nil {
		slog.Error("failed to close Postgres", "error", err)
	}
}
