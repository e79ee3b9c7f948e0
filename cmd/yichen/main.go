package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yichen-ai/yichen/internal/api"
	"github.com/yichen-ai/yichen/internal/assistant"
	"github.com/yichen-ai/yichen/internal/config"
	"github.com/yichen-ai/yichen/internal/events"
	"github.com/yichen-ai/yichen/internal/rag"
	"github.com/yichen-ai/yichen/internal/store"
)

func main() {
	// Local development keeps credentials in .env; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("yichen starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database (optional — without it the assistant still answers, but
	// history, the wrong-question book, and stats are off)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without persistence")
	}

	// NATS publisher (optional)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		var err error
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without study events")
	}

	if cfg.AI.APIKey == "" {
		slog.Warn("AI_API_KEY not set — requests must carry their own provider config")
	}

	dispatcher := rag.NewDispatcher(slog.Default())
	svc := assistant.New(dispatcher, cfg.MapTriggerMaxRunes, slog.Default())

	srv := api.NewServer(cfg, svc, db, publisher, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("yichen ready", "port", cfg.Port, "provider", string(cfg.AI.Provider), "model", cfg.AI.ModelName)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("yichen stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
