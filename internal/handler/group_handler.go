package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// GroupHandler exposes the group lifecycle and roster endpoints.
type GroupHandler struct {
	service service.GroupService
	logger  zerolog.Logger
}

// NewGroupHandler constructs a group handler.
func NewGroupHandler(service service.GroupService, logger zerolog.Logger) *GroupHandler {
	return &GroupHandler{
		service: service,
		logger:  logger.With().Str("component", "group_handler").Logger(),
	}
}

// Register binds the group routes. memberOnly guards routes restricted to
// members of the group named by :id.
func (h *GroupHandler) Register(router fiber.Router, memberOnly fiber.Handler) {
	router.Post("/", h.create)
	router.Get("/search", h.search)
	router.Get("/:id", h.get)
	router.Post("/:id/join", h.join)
	router.Delete("/:id/leave", h.leave)
	router.Delete("/:id", h.delete)
	router.Get("/:id/participants", memberOnly, h.participants)
}

func (h *GroupHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}

	var payload dto.CreateGroupRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	group, err := h.service.Create(withRequestContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "group created", group)
}

func (h *GroupHandler) search(c *fiber.Ctx) error {
	var query dto.GroupSearchQuery
	if err := c.QueryParser(&query); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	result, err := h.service.Search(withRequestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.OK(c, result.Items, "groups retrieved", fiber.Map{"pagination": result.Pagination})
}

func (h *GroupHandler) get(c *fiber.Ctx) error {
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	group, err := h.service.Get(withRequestContext(c), groupID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "group", group)
}

func (h *GroupHandler) join(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	group, err := h.service.Join(withRequestContext(c), groupID, userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "joined group", group)
}

func (h *GroupHandler) leave(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Leave(withRequestContext(c), groupID, userID); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "left group", fiber.Map{"group_id": groupID})
}

func (h *GroupHandler) delete(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return unauthenticated(c)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.Delete(withRequestContext(c), groupID, userID); err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "group deleted", fiber.Map{"group_id": groupID})
}

func (h *GroupHandler) participants(c *fiber.Ctx) error {
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	participants, err := h.service.Participants(withRequestContext(c), groupID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "participants", participants)
}
