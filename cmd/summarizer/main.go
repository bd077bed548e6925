// Package main implements the summarization worker binary. It
// consumes transcription-completion tasks from the summarization
// queue, generates a short summary through the Gemini API, and marks
// the note completed.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/phrazzld/murmur-api/internal/config"
	"github.com/phrazzld/murmur-api/internal/platform/gemini"
	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/platform/postgres"
	"github.com/phrazzld/murmur-api/internal/platform/rabbitmq"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("summarizer exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.Setup(cfg.Server)
	logg = logg.With("service", "summarizer")
	logg.Info("summarizer starting",
		"health_port", cfg.Server.HealthPort,
		"log_level", cfg.Server.LogLevel,
		"model_candidates", cfg.LLM.ModelCandidates)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	noteStore := postgres.NewPostgresNoteStore(db, logg)

	broker := rabbitmq.NewBroker(
		cfg.Broker.URL,
		cfg.Broker.PrefetchCount,
		time.Duration(cfg.Broker.ReconnectDelaySeconds)*time.Second,
		logg,
	)
	if err := broker.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer func() { _ = broker.Close() }()

	llm, err := gemini.NewSummarizer(ctx, gemini.Config{
		APIKey:          cfg.LLM.GeminiAPIKey,
		ModelCandidates: cfg.LLM.ModelCandidates,
		Timeout:         time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, logg)
	if err != nil {
		return fmt.Errorf("failed to create summarization client: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Pipeline.BaseDelaySeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.Pipeline.MaxDelaySeconds) * time.Second,
	}

	w, err := worker.NewSummarization(noteStore, llm, policy, cfg.Pipeline.FallbackPreviewLen, logg)
	if err != nil {
		return fmt.Errorf("failed to create summarization worker: %w", err)
	}

	healthSrv := startHealthServer(cfg.Server.HealthPort, logg)
	defer shutdownHealthServer(healthSrv, logg)

	logg.Info("consuming summarization tasks")
	if err := w.Run(ctx, broker); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("summarization worker stopped: %w", err)
	}

	logg.Info("summarizer shutting down")
	return nil
}

// startHealthServer serves the liveness endpoint used by the
// orchestrator. A worker with a live broker consumer is healthy.
func startHealthServer(port int, logg *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("health server stopped", "error", err)
		}
	}()

	return srv
}

func shutdownHealthServer(srv *http.Server, logg *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logg.Error("failed to shut down health server", "error", err)
	}
}
