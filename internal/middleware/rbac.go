package middleware

import (
	"go-grc/internal/features/role"
	"go-grc/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// RequireRole gates a route on the role hierarchy: the caller's role must
// rank at or above minRole.
func RequireRole(minRole role.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		actorRole, err := role.Parse(claims.Role)
		if err != nil || !actorRole.Satisfies(minRole) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Insufficient permissions",
			})
		}

		return c.Next()
	}
}
