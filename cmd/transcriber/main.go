// Package main implements the transcription worker binary. It
// consumes upload-completion tasks from the transcription queue,
// transcribes audio through the speech-to-text service, and hands the
// note on to the summarization stage.
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
	"github.com/phrazzld/murmur-api/internal/platform/deepgram"
	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/platform/postgres"
	"github.com/phrazzld/murmur-api/internal/platform/rabbitmq"
	"github.com/phrazzld/murmur-api/internal/retry"
	"github.com/phrazzld/murmur-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("transcriber exited with error: %v", err)
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
	logg = logg.With("service", "transcriber")
	logg.Info("transcriber starting",
		"health_port", cfg.Server.HealthPort,
		"log_level", cfg.Server.LogLevel,
		"stt_model", cfg.STT.Model,
		"stt_language", cfg.STT.Language)

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

	stt, err := deepgram.NewClient(deepgram.Config{
		APIKey:   cfg.STT.DeepgramAPIKey,
		Model:    cfg.STT.Model,
		Language: cfg.STT.Language,
		Timeout:  time.Duration(cfg.STT.TimeoutSeconds) * time.Second,
	}, logg)
	if err != nil {
		return fmt.Errorf("failed to create transcription client: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Pipeline.BaseDelaySeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.Pipeline.MaxDelaySeconds) * time.Second,
	}

	w, err := worker.NewTranscription(noteStore, stt, broker, policy, cfg.STT.Language, logg)
	if err != nil {
		return fmt.Errorf("failed to create transcription worker: %w", err)
	}

	healthSrv := startHealthServer(cfg.Server.HealthPort, logg)
	defer shutdownHealthServer(healthSrv, logg)

	logg.Info("consuming transcription tasks")
	if err := w.Run(ctx, broker); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("transcription worker stopped: %w", err)
	}

	logg.Info("transcriber shutting down")
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
