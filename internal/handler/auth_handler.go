package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// AuthHandler exposes registration, login and password recovery.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the auth routes. limiter, when non-nil, guards credential endpoints.
func (h *AuthHandler) Register(router fiber.Router, limiter fiber.Handler) {
	guard := limiter
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("/register", guard, h.register)
	router.Post("/login", guard, h.login)
	router.Post("/reset-password", guard, h.requestReset)
	router.Post("/confirm-reset-password", guard, h.confirmReset)
	router.Post("/verify-token", h.verifyToken)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	resp, err := h.service.Register(withRequestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", resp)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	resp, err := h.service.Login(withRequestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) requestReset(c *fiber.Ctx) error {
	var payload dto.PasswordResetRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := h.service.RequestPasswordReset(withRequestContext(c), payload); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "password reset email sent", nil)
}

func (h *AuthHandler) confirmReset(c *fiber.Ctx) error {
	var payload dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := h.service.ConfirmPasswordReset(withRequestContext(c), payload); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "password updated", nil)
}

func (h *AuthHandler) verifyToken(c *fiber.Ctx) error {
	var payload dto.VerifyTokenRequest
	if err := c.BodyParser(&payload); err != nil || payload.Token == "" {
		return badRequest(c, "token is required")
	}

	resp, err := h.service.VerifyToken(withRequestContext(c), payload.Token)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if !resp.Valid {
		return utils.FailWithKind(c, fiber.StatusUnauthorized, string(service.KindUnauthorized), "token is invalid or expired", resp)
	}

	return utils.SendSuccess(c, "token is valid", resp)
}
