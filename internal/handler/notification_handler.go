package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/stats", h.stats)
	router.Get("/types/:type", h.listByType)
	router.Patch("/read-all", h.markAllRead)
	router.Patch("/:id/read", h.markRead)
	router.Delete("/", h.deleteAll)
	router.Delete("/:id", h.delete)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	query := dto.NotificationListQuery{Type: strings.TrimSpace(c.Query("type"))}
	if raw := strings.TrimSpace(c.Query("read")); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid read filter")
		}
		query.Read = &read
	}

	var err error
	if query.Page, err = parseQueryInt(c, "page"); err != nil {
		return badRequest(c, "invalid page")
	}
	if query.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return badRequest(c, "invalid page_size")
	}

	result, err := h.service.List(withRequestContext(c), userID, query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "notifications", fiber.Map{
		"pagination":   result.Pagination,
		"unread_count": result.UnreadCount,
	})
}

func (h *NotificationHandler) listByType(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return badRequest(c, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return badRequest(c, "invalid page_size")
	}

	result, err := h.service.ListByType(withRequestContext(c), userID, c.Params("type"), page, pageSize)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "notifications", fiber.Map{
		"pagination":   result.Pagination,
		"unread_count": result.UnreadCount,
	})
}

func (h *NotificationHandler) stats(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	stats, err := h.service.Stats(withRequestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notification stats", stats)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	notification, err := h.service.MarkRead(withRequestContext(c), id, userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	result, err := h.service.MarkAllRead(withRequestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notifications marked as read", result)
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid notification id")
	}

	if err := h.service.Delete(withRequestContext(c), id, userID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notification deleted", fiber.Map{"id": id})
}

func (h *NotificationHandler) deleteAll(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	result, err := h.service.DeleteAll(withRequestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notifications deleted", result)
}
