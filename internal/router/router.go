package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/connexa-app/connexa-api/internal/config"
	"github.com/connexa-app/connexa-api/internal/handler"
	"github.com/connexa-app/connexa-api/internal/middleware"
	"github.com/connexa-app/connexa-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	GroupHandler        *handler.GroupHandler
	MessageHandler      *handler.MessageHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
	GroupAccess         middleware.GroupAccess
	AuthLimiter         fiber.Handler
	HealthChecks        map[string]handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	passThrough := func(c *fiber.Ctx) error { return c.Next() }
	memberOnly := passThrough
	if deps.GroupAccess != nil {
		memberOnly = middleware.RequireGroupMember(deps.GroupAccess, "id")
	}

	if deps.AuthHandler != nil {
		limiter := deps.AuthLimiter
		if limiter == nil {
			limiter = passThrough
		}
		deps.AuthHandler.Register(api.Group("/auth"), limiter)
	}

	if deps.UserHandler != nil {
		// The avatar catalogue is public; it must be registered before the
		// protected group so the JWT middleware never sees it.
		deps.UserHandler.RegisterPublic(api.Group("/users"))
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}

	if deps.MessageHandler != nil {
		messages := api.Group("/groups/:id/messages", jwtMiddleware, memberOnly)
		deps.MessageHandler.Register(messages)
	}

	if deps.GroupHandler != nil {
		deps.GroupHandler.Register(api.Group("/groups", jwtMiddleware), memberOnly)
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}
}
