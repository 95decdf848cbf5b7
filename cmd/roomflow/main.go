package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/roomflow/roomflow/internal/config"
	"github.com/roomflow/roomflow/internal/pipeline"
	"github.com/roomflow/roomflow/internal/registration"
	"github.com/roomflow/roomflow/internal/resolver"
	"github.com/roomflow/roomflow/internal/room"
	"github.com/roomflow/roomflow/internal/server"
	"github.com/roomflow/roomflow/internal/storage"
	"github.com/roomflow/roomflow/internal/storage/memory"
	"github.com/roomflow/roomflow/internal/storage/sqlite"
	"github.com/roomflow/roomflow/internal/telemetry"
)

const version = "0.1.0"

const modelCacheSize = 1024

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfgPath := os.Getenv("ROOMFLOW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	tracerShutdown, err := telemetry.InitTracer("roomflow", version, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	var store storage.RoomStore
	switch cfg.Storage.Type {
	case "memory":
		store = memory.New()
	default:
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
	}
	defer store.Close()

	cache, err := room.NewModelCache(modelCacheSize)
	if err != nil {
		log.Fatalf("Failed to create model cache: %v", err)
	}

	res := resolver.New(store, cache, cfg, logger)
	registry := pipeline.NewRegistry()
	if err := registration.RegisterCoreStages(registry, res, store, cfg); err != nil {
		log.Fatalf("Failed to register stages: %v", err)
	}
	if err := registry.Finalize(); err != nil {
		log.Fatalf("Failed to finalize pipeline: %v", err)
	}

	executor := pipeline.NewExecutor(registry, logger)
	srv := server.New(cfg.Server, executor, logger)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping daemon")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("daemon shutdown complete")
}
