package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/connexa-app/connexa-api/internal/service"
	"github.com/connexa-app/connexa-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer tokens and
// stores the authenticated user id under the "user_id" local.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return unauthorized(c, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return unauthorized(c, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return unauthorized(c, "invalid token")
		}

		userID, err := service.ParseAccessToken(secret, tokenString, nil)
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID returns the authenticated user id, or zero for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("user_id").(uint); ok {
		return id
	}
	return 0
}

func unauthorized(c *fiber.Ctx, message string) error {
	return utils.FailWithKind(c, fiber.StatusUnauthorized, string(service.KindUnauthorized), message, nil)
}
