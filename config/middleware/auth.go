package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"visitor-management/models"
)

type TokenValidator interface {
	ValidateToken(token string) (*models.Claims, error)
}

func AuthMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization header is required"})
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization header format must be Bearer <token>"})
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token", "details": err.Error()})
		}

		c.Locals("user", claims)

		return c.Next()
	}
}

// CurrentUser returns the claims stored by AuthMiddleware, or nil.
func CurrentUser(c *fiber.Ctx) *models.Claims {
	claims, _ := c.Locals("user").(*models.Claims)
	return claims
}
