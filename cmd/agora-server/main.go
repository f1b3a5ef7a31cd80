package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/config"
	"agora/internal/errors"
	"agora/internal/llm"
	"agora/internal/logging"
	"agora/internal/metrics"
	"agora/internal/server"
	"agora/internal/simulation"
	"agora/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search agora-config.yaml)")
	flag.Parse()

	logger := logging.NewComponentLogger("main")
	logger.Info("starting agora server")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Info("model: %s via %s", cfg.Model.Model, cfg.Model.BaseURL)
	logger.Info("store: %s", cfg.Store.Path)

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	client, err := llm.NewOpenAIClient(llm.Config{
		Model:      cfg.Model.Model,
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Timeout:    cfg.Model.TimeoutSecs,
		MaxRetries: cfg.Model.MaxRetries,
		Headers:    cfg.Model.Headers,
	})
	if err != nil {
		log.Fatalf("build model client: %v", err)
	}

	retryConfig := errors.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.Model.MaxRetries
	client = llm.NewRetryClient(client, retryConfig)

	m := metrics.Default()
	if tracking, ok := client.(llm.UsageTrackingClient); ok {
		tracking.SetUsageCallback(func(usage llm.TokenUsage, model string) {
			m.AddTokenUsage(model, usage.PromptTokens, usage.CompletionTokens)
		})
	}

	orchestrator := simulation.NewOrchestrator(client, simulation.Options{
		ReactionConcurrency: cfg.Simulation.ReactionConcurrency,
		MaxReactionFailures: cfg.Simulation.MaxReactionFailures,
		Temperature:         cfg.Model.Temperature,
	}, m, logging.NewComponentLogger("simulation"))

	srv, err := server.New(cfg.Server, cfg.Simulation.ResultCacheSize, st, orchestrator, logging.NewComponentLogger("http"))
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown: %v", err)
	}
}
