package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/api"
	"github.com/honeynil/AdaPayAcquirer/internal/app"
	"github.com/honeynil/AdaPayAcquirer/internal/config"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/kafka"
	"github.com/honeynil/AdaPayAcquirer/internal/observability"
	"github.com/honeynil/AdaPayAcquirer/internal/scheduler"
)

const (
	serviceName = "adapay-acquirer"
	syncTimeout = time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	// логи, метрики, трейсы
	shutdownTracing, metrics := observability.Setup(serviceName, cfg.OTLPEndpoint)
	defer shutdownTracing(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	if cfg.KafkaWebhookTopic != "" {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaWebhookTopic, serviceName+"-webhooks", a.Service)
		go consumer.Consume(ctx)
		defer consumer.Close()
		slog.Info("webhook relay consumer started", "topic", cfg.KafkaWebhookTopic)
	}

	var syncScheduler *scheduler.SyncScheduler
	if !cfg.Acquirer.UseWebhook {
		syncScheduler = scheduler.NewSyncScheduler(a.Service, a.Locker.WithTTL(2*syncTimeout), syncTimeout)
		if err := syncScheduler.Start(cfg.Acquirer.SyncSchedule); err != nil {
			return fmt.Errorf("failed to start sync scheduler: %w", err)
		}
	}

	router := api.SetupRouter(a.Service, api.RouterConfig{
		JWTSecret:        cfg.JWTSecret,
		WebhookTokenHash: cfg.Acquirer.WebhookTokenHash,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if syncScheduler != nil {
		syncScheduler.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
