package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
)

type staticTokens map[string]*models.Claims

func (s staticTokens) ValidateToken(token string) (*models.Claims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}

func TestAuthMiddleware_StoresClaimsForCurrentUser(t *testing.T) {
	guard := &models.Claims{UserID: primitive.NewObjectID(), Role: models.RoleSecurity}

	app := fiber.New()
	app.Get("/me", AuthMiddleware(staticTokens{"good": guard}), func(c *fiber.Ctx) error {
		claims := CurrentUser(c)
		if claims == nil {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendString(claims.UserID.Hex())
	})
	app.Get("/open", func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid token", "/me", "Bearer good", http.StatusOK},
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic good", http.StatusUnauthorized},
		{"unknown token", "/me", "Bearer bad", http.StatusUnauthorized},
		{"no middleware", "/open", "", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
