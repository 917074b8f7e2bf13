package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/connexa-app/connexa-api/internal/config"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthCheck returns a handler that reports application health. Each named
// pinger is called with a short timeout; any failure degrades the status to 503.
func HealthCheck(cfg config.Config, pingers map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(pingers) > 0 {
			payload.Checks = make(map[string]string, len(pingers))
			ctx, cancel := context.WithTimeout(withRequestContext(c), 2*time.Second)
			defer cancel()

			for name, ping := range pingers {
				if err := ping(ctx); err != nil {
					payload.Checks[name] = "unavailable"
					payload.Status = "degraded"
					continue
				}
				payload.Checks[name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return utils.FailWithKind(c, fiber.StatusServiceUnavailable, "unavailable", "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
