package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"equilo/internal/auth"
	"equilo/internal/cache"
	"equilo/internal/config"
	"equilo/internal/core"
	"equilo/internal/event"
	apphttp "equilo/internal/http"
	applog "equilo/internal/log"
	"equilo/internal/service"
	"equilo/internal/storage"
	"equilo/internal/storage/postgres"
	"equilo/internal/storage/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentApp,
		Handler:   applog.NewHandler(cfg.LogFormat, applog.ParseLevel(cfg.LogLevel)),
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "backend", cfg.DataBackend)

	// AMQP is optional: without it, writes succeed and notifications are
	// simply skipped.
	var events event.Publisher
	if cfg.AMQPURL != "" {
		client, err := event.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	summaryCache := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaryCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	summaries := service.NewSummaryService(store, summaryCache)
	svc := apphttp.Services{
		Auth:      service.NewAuthService(store, tokens),
		Places:    service.NewPlaceService(store),
		Invites:   service.NewInviteService(store, events),
		Expenses:  service.NewExpenseService(store, events, summaries),
		Summaries: summaries,
		Tokens:    tokens,
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting equilo server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
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
