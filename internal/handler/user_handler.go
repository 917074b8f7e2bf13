package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// UserHandler serves the caller's profile and account endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// RegisterPublic binds routes that need no authentication.
func (h *UserHandler) RegisterPublic(router fiber.Router) {
	router.Get("/avatars", h.avatars)
}

// Register binds the authenticated profile routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.profile)
	router.Put("/me", h.updateProfile)
	router.Put("/me/photo", h.uploadPhoto)
	router.Get("/me/groups", h.myGroups)
	router.Delete("/me", h.deleteAccount)
}

func (h *UserHandler) avatars(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "avatars", h.service.ListAvatars())
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	profile, err := h.service.GetProfile(withRequestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile", profile)
}

func (h *UserHandler) updateProfile(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.UpdateProfileRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	profile, err := h.service.UpdateProfile(withRequestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile updated", profile)
}

func (h *UserHandler) uploadPhoto(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo file is required")
	}

	photo, err := h.service.UploadPhoto(withRequestContext(c), userID, file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "photo updated", photo)
}

func (h *UserHandler) myGroups(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	groups, err := h.service.ListMyGroups(withRequestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "groups", groups)
}

func (h *UserHandler) deleteAccount(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.DeleteAccountRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := h.service.DeleteAccount(withRequestContext(c), userID, payload); err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("user_id", userID).Msg("account removed")
	return utils.SendSuccess(c, "account deleted", nil)
}
