package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"equilo/internal/config"
	"equilo/internal/event"
	applog "equilo/internal/log"
	"equilo/internal/storage"
	"equilo/internal/storage/postgres"
	"equilo/internal/storage/sqlite"
	"equilo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
		Handler:   applog.NewHandler(cfg.LogFormat, applog.ParseLevel(cfg.LogLevel)),
	})
	applog.SetDefault(logger)

	logger.Info("Starting notify-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notify worker")
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	client, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	notify := worker.NewNotifyWorker(store)

	logger.Info("Consuming events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	err = client.Consume(ctx, func(ev *event.Event) error {
		return notify.Handle(ctx, ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case "postgres":
		return postgres.New(cfg.PostgresDSN)
	case "sqlite":
		return sqlite.New(cfg.SQLiteDBPath)
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
