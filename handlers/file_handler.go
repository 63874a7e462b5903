package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/labstack/gommon/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const filesPrefix = "/api/v1/files/"

func fileURL(id primitive.ObjectID) string {
	return filesPrefix + id.Hex()
}

type FileHandler struct {
	photos PhotoStore
}

func NewFileHandler(photos PhotoStore) *FileHandler {
	return &FileHandler{photos: photos}
}

// GetFile godoc
// @Summary Download File
// @Description Streams an uploaded file (visitor photos) from GridFS
// @Tags Files
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /files/{id} [get]
func (h *FileHandler) GetFile(c *fiber.Ctx) error {
	objectID, err := paramObjectID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid file ID")
	}

	stream, name, err := h.photos.Open(objectID)
	if err != nil {
		return respondError(c, err, "File not found")
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stream); err != nil {
		log.Errorf("failed to read file %s: %v", objectID.Hex(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read file"})
	}

	c.Set(fiber.HeaderContentType, http.DetectContentType(buf.Bytes()))
	c.Set(fiber.HeaderContentDisposition, "inline; filename=\""+name+"\"")
	return c.Send(buf.Bytes())
}
