package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dusabe/momo-tracker/internal/domain/ingest/repository"
	"github.com/dusabe/momo-tracker/internal/domain/ingest/service"
	"github.com/dusabe/momo-tracker/pkg/config"
	"github.com/dusabe/momo-tracker/pkg/db"
)

func main() {
	filePath := flag.String("file", "", "path to the exported SMS XML document")
	userID := flag.Int64("user", 0, "owning user id")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	if *filePath == "" || *userID <= 0 {
		logger.Error("both -file and -user are required")
		os.Exit(2)
	}

	if err := run(cfg, logger, *filePath, *userID); err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, filePath string, userID int64) error {
	database, err := db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repository.NewPostgresStoreRepository(database.Pool)
	svc := service.NewIngestService(repo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	result, err := svc.IngestDocument(ctx, userID, data)
	if err != nil {
		return err
	}

	fmt.Printf("job %s: %d messages, %d rows written\n", result.JobID, result.MessagesTotal, result.RowsWritten)
	for _, o := range result.Outcomes {
		if o.Err != nil {
			fmt.Printf("  %-45s ERROR %v\n", o.Store, o.Err)
			continue
		}
		fmt.Printf("  %-45s %d rows\n", o.Store, o.RowsWritten)
	}

	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d categories failed; replay only those categories to retry", len(failed))
	}
	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
