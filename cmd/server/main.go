package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/assistant"
	"trade-journal-assistant/internal/cache"
	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/database"
	"trade-journal-assistant/internal/extraction"
	"trade-journal-assistant/internal/httpapi"
	"trade-journal-assistant/internal/llm"
	"trade-journal-assistant/internal/logger"
	"trade-journal-assistant/internal/market"
	"trade-journal-assistant/internal/metrics"
	"trade-journal-assistant/internal/normalize"
	"trade-journal-assistant/internal/repository"
	"trade-journal-assistant/internal/retry"
	"trade-journal-assistant/internal/search"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	repo := repository.New(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := cache.New(ctx, &cfg.Redis, log)
	defer store.Close()

	retryOpts := []retry.Option{
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithBaseDelay(cfg.Retry.BaseDelay),
		retry.WithMaxJitter(cfg.Retry.MaxJitter),
	}

	model := llm.NewClient(&cfg.Gemini, log)
	analyzer := extraction.NewAnalyzer(model, extraction.NewAssembler(normalize.NewTimeParser(time.UTC)), log, rec, retryOpts...)

	aggregator := market.NewAggregator(&cfg.Market, market.NewProviders(&cfg.Market, log, rec), store, log, rec, retryOpts...)

	var enricher assistant.Enricher
	if cfg.Search.Enabled {
		enricher = search.NewEnricher(search.NewClient(&cfg.Search, log), &cfg.Search, log)
		log.Info("Web search enrichment enabled")
	}
	chat := assistant.NewService(model, repo, aggregator, enricher, &cfg.Chat, log,
		append(retryOpts, retry.WithObserver(rec.RetryObserver("chat_reply")))...)

	handler := httpapi.NewHandler(log, repo, analyzer, chat, aggregator)
	server := httpapi.NewServer(&cfg.Server, handler, reg, log)
	server.Start()

	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
