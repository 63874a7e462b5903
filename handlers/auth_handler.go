package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/labstack/gommon/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/pkg/password"
	util "visitor-management/pkg/utils"
	"visitor-management/repository"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAuthHandler(users UserStore, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
	}
}

type authResponse struct {
	ID         primitive.ObjectID `json:"_id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Role       string             `json:"role"`
	Department string             `json:"department,omitempty"`
	Phone      string             `json:"phone,omitempty"`
	Token      string             `json:"token"`
}

func newAuthResponse(user *models.User, token string) authResponse {
	return authResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
		Phone:      user.Phone,
		Token:      token,
	}
}

// Register godoc
// @Summary Register User
// @Description Creates an account and returns a token. The admin role can only be claimed by the first account.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body models.UserRegisterPayload true "Registration data"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 403 {object} models.ForbiddenErrorResponse
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var payload models.UserRegisterPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	if payload.Role == "" {
		payload.Role = models.RoleEmployee
	}
	if payload.Role == models.RoleAdmin {
		count, err := h.users.CountUsers(ctx)
		if err != nil {
			return respondError(c, err, "")
		}
		if count > 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin accounts can only be created by the seeder or as the first account"})
		}
	}

	hashedPassword, err := password.HashPassword(payload.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	user := &models.User{
		Name:       strings.TrimSpace(payload.Name),
		Email:      payload.Email,
		Password:   hashedPassword,
		Role:       payload.Role,
		Department: payload.Department,
		Phone:      payload.Phone,
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already in use"})
		}
		return respondError(c, err, "")
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		log.Errorf("failed to issue token for %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}

	log.Infof("user %s registered with role %s", user.Email, user.Role)
	return c.Status(fiber.StatusCreated).JSON(newAuthResponse(user, token))
}

// Login godoc
// @Summary Login User
// @Description Exchanges email and password for a PASETO token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.UserLoginPayload true "Login credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 401 {object} models.UnauthorizedErrorResponse "Wrong email or password"
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var payload models.UserLoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	user, err := h.users.FindUserByEmail(ctx, payload.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return respondError(c, err, "")
	}
	if user == nil || !password.CheckPasswordHash(payload.Password, user.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Incorrect email or password"})
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		log.Errorf("failed to issue token for %s: %v", user.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
	}

	return c.Status(fiber.StatusOK).JSON(newAuthResponse(user, token))
}

// Me godoc
// @Summary Current User
// @Description Returns the profile of the authenticated user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.UnauthorizedErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /users/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	user, err := h.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return respondError(c, err, "User not found")
	}
	return c.JSON(user)
}

// ListUsers godoc
// @Summary List Users
// @Description Lists users, optionally filtered by role. Used to pick hosts.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "admin, security or employee"
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.UnauthorizedErrorResponse
// @Router /users [get]
func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	role := c.Query("role")
	switch role {
	case "", models.RoleAdmin, models.RoleSecurity, models.RoleEmployee:
	default:
		return badRequest(c, "Invalid role filter")
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	users, err := h.users.ListUsers(ctx, role)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(users)
}
