package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/config"
	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/handler"
	"github.com/connexa-app/connexa-api/internal/middleware"
	"github.com/connexa-app/connexa-api/internal/repository"
	"github.com/connexa-app/connexa-api/internal/router"
	"github.com/connexa-app/connexa-api/internal/service"
)

// application is the fully wired HTTP server plus the background jobs main
// has to start and stop.
type application struct {
	app       *fiber.App
	retention *service.NotificationRetention
}

// buildApplication wires repositories, services and handlers onto a fresh
// fiber app. ledger and storage may be nil when Redis or Cloudinary are not
// configured.
func buildApplication(cfg config.Config, db *gorm.DB, ledger service.TokenLedger, storage service.FileStorage, healthChecks map[string]handler.Pinger, logger zerolog.Logger) application {
	validate := dto.NewValidator()

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, cfg.NotificationWorkers, logger)
	groupService := service.NewGroupService(groupRepo, userRepo, notificationService, service.GroupPolicy{
		MaxActiveGroups: cfg.MaxActiveGroups,
		MinCapacity:     cfg.MinGroupCapacity,
		MaxCapacity:     cfg.MaxGroupCapacity,
	}, validate, logger)
	messageService := service.NewMessageService(messageRepo, groupRepo, notificationService, service.ContentPolicy{
		Denylist:  cfg.MessageDenylist,
		MaxLength: cfg.MessageMaxLength,
	}, logger)
	authService := service.NewAuthService(userRepo, service.NewLogMailer(logger), ledger, service.AuthConfig{
		Secret:              cfg.JWTSecret,
		ResetSecret:         cfg.JWTResetSecret,
		TokenTTL:            cfg.TokenTTL,
		ResetTTL:            cfg.ResetTokenTTL,
		AllowedEmailDomains: cfg.AllowedEmailDomains,
	}, validate, logger)
	userService := service.NewUserService(userRepo, groupRepo, storage, cfg.UploadMaxSizeMB, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:      &logger,
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		GroupHandler:        handler.NewGroupHandler(groupService, logger),
		MessageHandler:      handler.NewMessageHandler(messageService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		GroupAccess:         groupService,
		AuthLimiter:         middleware.RateLimit("auth", cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow),
		HealthChecks:        healthChecks,
	})

	return application{
		app:       app,
		retention: service.NewNotificationRetention(notificationService, cfg.NotificationRetention, logger),
	}
}
