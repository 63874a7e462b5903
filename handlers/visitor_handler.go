package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	util "visitor-management/pkg/utils"
	"visitor-management/repository"
)

const maxPhotoSize = 5 * 1024 * 1024

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PhotoStore keeps uploaded images. GridFS in production.
type PhotoStore interface {
	Upload(filename, contentType string, src io.Reader) (primitive.ObjectID, error)
	Open(id primitive.ObjectID) (io.ReadCloser, string, error)
	Delete(id primitive.ObjectID) error
}

type VisitorHandler struct {
	visitors repository.VisitorRepository
	photos   PhotoStore
}

func NewVisitorHandler(visitors repository.VisitorRepository, photos PhotoStore) *VisitorHandler {
	return &VisitorHandler{
		visitors: visitors,
		photos:   photos,
	}
}

// GetVisitors godoc
// @Summary List Visitors
// @Description Lists visitors, newest first. Non-admins only see visitors they registered.
// @Tags Visitors
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Visitor
// @Failure 401 {object} models.UnauthorizedErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /visitors [get]
func (h *VisitorHandler) GetVisitors(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	visitors, err := h.visitors.List(ctx, ownerScope(claims))
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(visitors)
}

// GetVisitor godoc
// @Summary Get Visitor
// @Tags Visitors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Visitor ID"
// @Success 200 {object} models.Visitor
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /visitors/{id} [get]
func (h *VisitorHandler) GetVisitor(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	visitor, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such visitor")
	}
	return c.JSON(visitor)
}

// CreateVisitor godoc
// @Summary Register Visitor
// @Description Accepts JSON or multipart form data. A multipart request may carry a "photo" file.
// @Tags Visitors
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param visitor body models.VisitorCreatePayload true "Visitor data"
// @Success 201 {object} models.Visitor
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Failure 500 {object} models.ErrorResponse
// @Router /visitors [post]
func (h *VisitorHandler) CreateVisitor(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	var payload models.VisitorCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	trimVisitorPayload(&payload)

	if empty := payload.EmptyFields(); len(empty) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Please fill out all the fields!", "empty_fields": empty})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	visitor := &models.Visitor{
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Company:   payload.Company,
		IDType:    payload.IDType,
		IDNumber:  payload.IDNumber,
		CreatedBy: claims.UserID,
	}

	file, ferr := optionalPhoto(c)
	if ferr != nil {
		return badRequest(c, ferr.Error())
	}
	if file != nil {
		photoURL, err := h.storePhoto(file)
		if err != nil {
			return respondError(c, err, "")
		}
		visitor.PhotoURL = photoURL
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	if err := h.visitors.Create(ctx, visitor); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A visitor with this email already exists"})
		}
		return respondError(c, err, "")
	}
	return c.Status(fiber.StatusCreated).JSON(visitor)
}

// UpdateVisitor godoc
// @Summary Update Visitor
// @Description Only the fields present are changed.
// @Tags Visitors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Visitor ID"
// @Param visitor body models.VisitorUpdatePayload true "Fields to change"
// @Success 200 {object} models.Visitor
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /visitors/{id} [put]
func (h *VisitorHandler) UpdateVisitor(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	var payload models.VisitorUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	existing, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such visitor")
	}

	visitor, err := h.visitors.Update(ctx, existing.ID, &payload)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A visitor with this email already exists"})
		}
		return respondError(c, err, "No such visitor")
	}
	return c.JSON(visitor)
}

// UploadVisitorPhoto godoc
// @Summary Upload Visitor Photo
// @Tags Visitors
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Visitor ID"
// @Param photo formData file true "Photo (JPG, PNG, GIF, WEBP, max 5MB)"
// @Success 200 {object} models.Visitor
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /visitors/{id}/photo [post]
func (h *VisitorHandler) UploadVisitorPhoto(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "No photo was uploaded")
	}
	if err := checkPhoto(file); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	existing, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such visitor")
	}

	photoURL, err := h.storePhoto(file)
	if err != nil {
		return respondError(c, err, "")
	}
	visitor, err := h.visitors.SetPhoto(ctx, existing.ID, photoURL)
	if err != nil {
		return respondError(c, err, "No such visitor")
	}
	h.dropPhoto(existing.PhotoURL)
	return c.JSON(visitor)
}

// DeleteVisitor godoc
// @Summary Delete Visitor
// @Tags Visitors
// @Produce json
// @Security BearerAuth
// @Param id path string true "Visitor ID"
// @Success 200 {object} models.Visitor "The deleted visitor"
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /visitors/{id} [delete]
func (h *VisitorHandler) DeleteVisitor(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	visitor, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such visitor")
	}
	if err := h.visitors.Delete(ctx, visitor.ID); err != nil {
		return respondError(c, err, "No such visitor")
	}
	h.dropPhoto(visitor.PhotoURL)
	return c.JSON(visitor)
}

// findOwned loads the visitor named by :id. Records registered by someone
// else are reported as missing to non-admins.
func (h *VisitorHandler) findOwned(ctx context.Context, c *fiber.Ctx, claims *models.Claims) (*models.Visitor, error) {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return nil, repository.ErrNotFound
	}
	visitor, err := h.visitors.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() && visitor.CreatedBy != claims.UserID {
		return nil, repository.ErrNotFound
	}
	return visitor, nil
}

func (h *VisitorHandler) storePhoto(file *multipart.FileHeader) (string, error) {
	if h.photos == nil {
		return "", errors.New("photo storage is not configured")
	}
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	id, err := h.photos.Upload(name, file.Header.Get("Content-Type"), src)
	if err != nil {
		return "", err
	}
	return fileURL(id), nil
}

// dropPhoto removes a replaced photo. Failures only leave an orphan file.
func (h *VisitorHandler) dropPhoto(photoURL string) {
	if h.photos == nil || photoURL == "" {
		return
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(photoURL, filesPrefix))
	if err != nil {
		return
	}
	if err := h.photos.Delete(id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Warnf("failed to delete photo %s: %v", id.Hex(), err)
	}
}

// optionalPhoto returns the "photo" part of a multipart request, or nil.
func optionalPhoto(c *fiber.Ctx) (*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	file, err := c.FormFile("photo")
	if err != nil {
		return nil, nil
	}
	if err := checkPhoto(file); err != nil {
		return nil, err
	}
	return file, nil
}

func checkPhoto(file *multipart.FileHeader) error {
	if !allowedPhotoTypes[file.Header.Get("Content-Type")] {
		return errors.New("Unsupported file type. Only JPG, PNG, GIF and WEBP are allowed")
	}
	if file.Size > maxPhotoSize {
		return fmt.Errorf("File is too large. The maximum is %d MB", maxPhotoSize/1024/1024)
	}
	return nil
}

func trimVisitorPayload(p *models.VisitorCreatePayload) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Company = strings.TrimSpace(p.Company)
	p.IDType = strings.TrimSpace(p.IDType)
	p.IDNumber = strings.TrimSpace(p.IDNumber)
}
