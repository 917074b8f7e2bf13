package middleware

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// GroupAccess answers membership questions for the group guards.
type GroupAccess interface {
	RequireMember(ctx context.Context, groupID, userID uint) error
}

// RequireGroupMember rejects callers that do not belong to the group named by
// the route parameter param.
func RequireGroupMember(access GroupAccess, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == 0 {
			return unauthorized(c, "authentication required")
		}

		groupID, err := strconv.ParseUint(c.Params(param), 10, 64)
		if err != nil || groupID == 0 {
			return utils.FailWithKind(c, fiber.StatusBadRequest, string(service.KindValidation), "invalid group id", nil)
		}

		if err := access.RequireMember(c.UserContext(), uint(groupID), userID); err != nil {
			if service.KindOf(err) == service.KindForbidden {
				return utils.FailWithKind(c, fiber.StatusForbidden, string(service.KindForbidden), "only group members can access this resource", nil)
			}
			return utils.FailWithKind(c, fiber.StatusInternalServerError, string(service.KindInternal), "internal server error", nil)
		}

		return c.Next()
	}
}
