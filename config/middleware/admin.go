package middleware

import (
	"github.com/gofiber/fiber/v2"

	"visitor-management/models"
)

func AdminMiddleware() fiber.Handler {
	return RoleMiddleware(models.RoleAdmin)
}

// RoleMiddleware lets the request through only when the authenticated
// user's role is in roles.
func RoleMiddleware(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*models.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data is corrupt"})
		}

		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied for role " + claims.Role})
	}
}
