// Command retention deletes notifications older than the configured retention
// window and exits. It is meant for external schedulers that prefer a one-shot
// job over the in-process cron.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/config"
	"github.com/connexa-app/connexa-api/internal/database"
	"github.com/connexa-app/connexa-api/internal/repository"
	"github.com/connexa-app/connexa-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "connexa-retention").Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), cfg.NotificationWorkers, logger)
	retention := service.NewNotificationRetention(notifications, cfg.NotificationRetention, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deleted, err := retention.RunOnce(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("notification retention failed")
		os.Exit(1)
	}

	logger.Info().Int64("deleted", deleted).Msg("notification retention complete")
}
