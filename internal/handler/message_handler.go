package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// MessageHandler serves a group's message board.
type MessageHandler struct {
	service service.MessageService
	logger  zerolog.Logger
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(service service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		logger:  logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds the message routes under /groups/:id/messages.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/recent", h.recent)
	router.Post("/", h.send)
	router.Delete("/:messageId", h.delete)
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return badRequest(c, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return badRequest(c, "invalid page_size")
	}

	result, err := h.service.List(withRequestContext(c), groupID, userID, page, pageSize)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "messages retrieved", fiber.Map{"pagination": result.Pagination})
}

func (h *MessageHandler) recent(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	messages, err := h.service.Recent(withRequestContext(c), groupID, userID, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "recent messages", messages)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.SendMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	message, err := h.service.Send(withRequestContext(c), groupID, userID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessageHandler) delete(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	messageID, err := parseIDParam(c, "messageId")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(withRequestContext(c), groupID, messageID, userID); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "message deleted", fiber.Map{"id": messageID})
}
