package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	util "visitor-management/pkg/utils"
	"visitor-management/repository"
	"visitor-management/service"
)

// PassQueries serves the populated read views of passes.
type PassQueries interface {
	FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.PassWithDetails, error)
	ListWithDetails(ctx context.Context, filter repository.PassFilter) ([]models.PassWithDetails, error)
}

type PassHandler struct {
	engine  *service.PassEngine
	queries PassQueries
}

func NewPassHandler(engine *service.PassEngine, queries PassQueries) *PassHandler {
	return &PassHandler{
		engine:  engine,
		queries: queries,
	}
}

// GetPasses godoc
// @Summary List Passes
// @Description Newest first, with visitor, host and appointment populated. Non-admins only see passes they issued.
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param host query string false "Host user ID"
// @Param visitor query string false "Visitor ID"
// @Param status query string false "active, expired, checkedOut or cancelled"
// @Success 200 {array} models.PassWithDetails
// @Failure 400 {object} models.ErrorResponse
// @Router /passes [get]
func (h *PassHandler) GetPasses(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	filter := repository.PassFilter{
		Status:    models.PassStatus(c.Query("status")),
		CreatedBy: ownerScope(claims),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return badRequest(c, "Invalid status filter")
	}
	if filter.HostID, err = optionalObjectID(c.Query("host")); err != nil {
		return badRequest(c, "Invalid host ID")
	}
	if filter.VisitorID, err = optionalObjectID(c.Query("visitor")); err != nil {
		return badRequest(c, "Invalid visitor ID")
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	passes, err := h.queries.ListWithDetails(ctx, filter)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(passes)
}

// GetPass godoc
// @Summary Get Pass
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {object} models.PassWithDetails
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /passes/{id} [get]
func (h *PassHandler) GetPass(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	pass, err := h.queries.FindWithDetails(ctx, id)
	if err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(pass)
}

// CreatePass godoc
// @Summary Issue Pass
// @Description Issues an active pass with a unique number and its QR image.
// @Tags Passes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pass body models.PassCreatePayload true "Pass data"
// @Success 201 {object} models.Pass
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 409 {object} models.ErrorResponse "Pass number collision"
// @Failure 500 {object} models.ErrorResponse "QR generation failed"
// @Router /passes [post]
func (h *PassHandler) CreatePass(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	var payload models.PassCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	in := service.IssuePassInput{
		ValidFrom: payload.ValidFrom,
		ValidTo:   payload.ValidTo,
		IssuedBy:  claims.UserID,
	}
	// ids were checked by the objectid tag
	in.VisitorID, _ = optionalObjectID(payload.Visitor)
	in.HostID, _ = optionalObjectID(payload.Host)
	in.AppointmentID, _ = optionalObjectID(payload.Appointment)

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	pass, err := h.engine.IssuePass(ctx, in)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.Status(fiber.StatusCreated).JSON(pass)
}

// UpdatePass godoc
// @Summary Update Pass
// @Description Changes the host or the validity window. Widening the window of an expired pass reopens it.
// @Tags Passes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Param pass body models.PassUpdatePayload true "Fields to change"
// @Success 200 {object} models.Pass
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /passes/{id} [put]
func (h *PassHandler) UpdatePass(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	var payload models.PassUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	in := service.PassUpdateInput{ValidFrom: payload.ValidFrom, ValidTo: payload.ValidTo}
	in.HostID, _ = optionalObjectID(payload.Host)

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	pass, err := h.engine.UpdatePass(ctx, id, in)
	if err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(pass)
}

// CancelPass godoc
// @Summary Cancel Pass
// @Description Revokes a pass. A cancelled pass can no longer be scanned.
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {object} models.Pass
// @Failure 404 {object} models.NotFoundErrorResponse
// @Failure 409 {object} models.ErrorResponse "Already cancelled"
// @Router /passes/{id}/cancel [post]
func (h *PassHandler) CancelPass(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	pass, err := h.engine.CancelPass(ctx, id)
	if err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(pass)
}

// DeletePass godoc
// @Summary Delete Pass
// @Description Removes the pass. Its check-log entries are kept.
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /passes/{id} [delete]
func (h *PassHandler) DeletePass(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	if err := h.engine.DeletePass(ctx, id); err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(fiber.Map{"message": "Pass deleted successfully"})
}

// GetPassQr godoc
// @Summary Get Pass QR
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {object} models.PassQRResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /passes/{id}/qr [get]
func (h *PassHandler) GetPassQr(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	pass, err := h.engine.GetPass(ctx, id)
	if err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(models.PassQRResponse{PassNumber: pass.PassNumber, QRImage: pass.QRImage})
}

// GetPassState godoc
// @Summary Get Pass State
// @Description Returns the stored pass, its latest gate event and the status its history implies.
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {object} service.PassState
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /passes/{id}/state [get]
func (h *PassHandler) GetPassState(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	state, err := h.engine.GetCurrentState(ctx, id)
	if err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(state)
}

// ReconcilePass godoc
// @Summary Reconcile Pass
// @Description Admin only. Rewrites the stored status from the check-log history.
// @Tags Passes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {object} object{pass=models.Pass,changed=bool}
// @Failure 404 {object} models.NotFoundErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /passes/{id}/reconcile [post]
func (h *PassHandler) ReconcilePass(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	pass, changed, err := h.engine.ReconcilePass(ctx, id)
	if err != nil {
		return respondError(c, err, "No such pass")
	}
	return c.JSON(fiber.Map{"pass": pass, "changed": changed})
}
