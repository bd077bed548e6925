// Package main implements the database migration runner. It wraps
// goose with the application's configuration and structured logging.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate status
//	migrate version
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"

	"github.com/phrazzld/murmur-api/internal/config"
	"github.com/phrazzld/murmur-api/internal/platform/logger"
	"github.com/phrazzld/murmur-api/internal/platform/postgres/migrations"
)

// slogGooseLogger adapts the goose logger interface to slog. Fatalf
// deliberately does not exit; errors propagate back to main.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: migrate <up|down|status|version>")
	}

	if err := run(os.Args[1]); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

func run(command string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.Setup(cfg.Server)
	logg = logg.With("component", "migrations", "command", command)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetLogger(&slogGooseLogger{})
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("schema_migrations")

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	start := time.Now()
	if err := goose.RunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	logg.Info("migration operation completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
