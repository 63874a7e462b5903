package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/labstack/gommon/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/config/middleware"
	"visitor-management/models"
	"visitor-management/repository"
	"visitor-management/service"
)

const requestTimeout = 5 * time.Second

// respondError maps domain errors onto HTTP responses. notFound is the
// message used for a missing resource.
func respondError(c *fiber.Ctx, err error, notFound string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		body := fiber.Map{"error": verr.Message}
		if len(verr.Fields) > 0 {
			if verr.Message == service.MsgMissingFields {
				body["empty_fields"] = verr.Fields
			} else {
				body["fields"] = verr.Fields
			}
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound})
	case errors.Is(err, service.ErrNotYetValid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Pass is not yet valid"})
	case errors.Is(err, service.ErrExpired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Pass has expired"})
	case errors.Is(err, service.ErrPassCancelled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Pass has been cancelled"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrVersionConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "The resource was modified concurrently, please retry"})
	case errors.Is(err, repository.ErrDuplicateKey):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A record with the same unique value already exists"})
	case errors.Is(err, service.ErrQRGeneration):
		log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate QR code"})
	default:
		log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func paramObjectID(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Params(name))
}

// optionalObjectID parses a hex id, treating "" as absent.
func optionalObjectID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// currentUser returns the authenticated caller. When there is none it has
// already written the 401 and returns a nil claims.
func currentUser(c *fiber.Ctx) (*models.Claims, error) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or invalid token claims"})
	}
	return claims, nil
}

// ownerScope is nil for admins, who see every record, and the caller's id
// otherwise.
func ownerScope(claims *models.Claims) *primitive.ObjectID {
	if claims.IsAdmin() {
		return nil
	}
	id := claims.UserID
	return &id
}

// parseTimeParam accepts RFC 3339 or a plain YYYY-MM-DD date. A date used as
// an upper bound covers the whole day.
func parseTimeParam(raw string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

func parseRange(c *fiber.Ctx, loc *time.Location) (models.ReportRange, error) {
	from, err := parseTimeParam(c.Query("from"), false, loc)
	if err != nil {
		return models.ReportRange{}, errors.New("invalid 'from' date, use YYYY-MM-DD or RFC3339")
	}
	to, err := parseTimeParam(c.Query("to"), true, loc)
	if err != nil {
		return models.ReportRange{}, errors.New("invalid 'to' date, use YYYY-MM-DD or RFC3339")
	}
	if from != nil && to != nil && to.Before(*from) {
		return models.ReportRange{}, errors.New("'to' must not be before 'from'")
	}
	return models.ReportRange{From: from, To: to}, nil
}
