package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/middleware"
	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return 0, fmt.Errorf("%s required", key)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	return middleware.UserID(c)
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.FailWithKind(c, fiber.StatusBadRequest, string(service.KindValidation), message, nil)
}

func unauthenticated(c *fiber.Ctx) error {
	return utils.FailWithKind(c, fiber.StatusUnauthorized, string(service.KindUnauthorized), "user not authenticated", nil)
}

func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindForbidden:
		return fiber.StatusForbidden
	case service.KindUnauthorized:
		return fiber.StatusUnauthorized
	case service.KindConflict:
		return fiber.StatusConflict
	case service.KindTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case service.KindAlreadyMember, service.KindGroupFull, service.KindNotMember,
		service.KindLimitExceeded, service.KindInvalidState, service.KindInappropriateContent,
		service.KindValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders a service error with the status its kind maps to.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	kind := service.KindOf(err)
	status := statusForKind(kind)

	if status == fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
		return utils.FailWithKind(c, status, string(service.KindInternal), "internal server error", nil)
	}

	message := err.Error()
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	var details interface{}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		details = validationDetails(fieldErrors)
	}

	return utils.FailWithKind(c, status, string(kind), message, details)
}

func validationDetails(fieldErrors validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		field := strings.ToLower(fieldErr.Field())
		if fieldErr.Param() != "" {
			details[field] = fmt.Sprintf("%s=%s", fieldErr.Tag(), fieldErr.Param())
			continue
		}
		details[field] = fieldErr.Tag()
	}
	return details
}
