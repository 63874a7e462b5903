package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	util "visitor-management/pkg/utils"
	"visitor-management/repository"
	"visitor-management/service"
)

// CheckLogQueries serves gate events with their pass, visitor, host and
// scanning officer joined in.
type CheckLogQueries interface {
	FindWithDetails(ctx context.Context, id primitive.ObjectID) (*models.CheckLogWithDetails, error)
	ListWithDetails(ctx context.Context, filter repository.CheckLogFilter) ([]models.CheckLogWithDetails, error)
}

type CheckLogHandler struct {
	engine  *service.PassEngine
	ledger  *service.Ledger
	queries CheckLogQueries
}

func NewCheckLogHandler(engine *service.PassEngine, ledger *service.Ledger, queries CheckLogQueries) *CheckLogHandler {
	return &CheckLogHandler{
		engine:  engine,
		ledger:  ledger,
		queries: queries,
	}
}

// ScanPass godoc
// @Summary Scan Pass
// @Description Security or admin. Records a gate event for the pass given by pass_id or by the scanned qr_data. The action alternates IN and OUT.
// @Tags Check Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param scan body models.ScanPayload true "Pass reference and gate"
// @Success 200 {object} models.ScanResponse
// @Failure 400 {object} models.ErrorResponse "Invalid input, pass not yet valid or expired"
// @Failure 404 {object} models.NotFoundErrorResponse
// @Failure 409 {object} models.ErrorResponse "Pass cancelled or concurrent scan"
// @Router /checklogs/scan [post]
func (h *CheckLogHandler) ScanPass(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	var payload models.ScanPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}
	payload.QRData = strings.TrimSpace(payload.QRData)
	if payload.PassID == "" && payload.QRData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": service.MsgMissingFields, "empty_fields": []string{"pass_id"}})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	scanner := claims.UserID
	var res *service.ScanResult
	if payload.PassID != "" {
		passID, _ := primitive.ObjectIDFromHex(payload.PassID)
		res, err = h.engine.ScanPass(ctx, passID, payload.Gate, &scanner)
	} else {
		res, err = h.engine.ScanByQR(ctx, payload.QRData, payload.Gate, &scanner)
	}
	if err != nil {
		return respondError(c, err, "Pass not found")
	}

	return c.JSON(models.ScanResponse{
		Message: res.Message(),
		Action:  res.Action,
		Pass:    res.Pass,
		Log:     res.Log,
	})
}

// GetCheckLogs godoc
// @Summary List Check Logs
// @Description Newest first, with pass, visitor, host and officer populated.
// @Tags Check Logs
// @Produce json
// @Security BearerAuth
// @Param pass query string false "Pass ID"
// @Param action query string false "IN or OUT"
// @Success 200 {array} models.CheckLogWithDetails
// @Failure 400 {object} models.ErrorResponse
// @Router /checklogs [get]
func (h *CheckLogHandler) GetCheckLogs(c *fiber.Ctx) error {
	filter := repository.CheckLogFilter{Action: models.CheckAction(strings.ToUpper(c.Query("action")))}
	if filter.Action != "" && !filter.Action.Valid() {
		return badRequest(c, "Invalid action filter")
	}
	passID, err := optionalObjectID(c.Query("pass"))
	if err != nil {
		return badRequest(c, "Invalid pass ID")
	}
	filter.PassID = passID

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	logs, err := h.queries.ListWithDetails(ctx, filter)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(logs)
}

// GetCheckLog godoc
// @Summary Get Check Log
// @Tags Check Logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Check log ID"
// @Success 200 {object} models.CheckLogWithDetails
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /checklogs/{id} [get]
func (h *CheckLogHandler) GetCheckLog(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such check log"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	entry, err := h.queries.FindWithDetails(ctx, id)
	if err != nil {
		return respondError(c, err, "No such check log")
	}
	return c.JSON(entry)
}

// GetPassHistory godoc
// @Summary Pass Gate History
// @Description All gate events of one pass, oldest first.
// @Tags Check Logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pass ID"
// @Success 200 {array} models.CheckLog
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /passes/{id}/history [get]
func (h *CheckLogHandler) GetPassHistory(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such pass"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	if _, err := h.engine.GetPass(ctx, id); err != nil {
		return respondError(c, err, "No such pass")
	}
	history, err := h.ledger.History(ctx, id)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(history)
}

// DeleteCheckLog godoc
// @Summary Delete Check Log
// @Description Admin only. The pass status is left as is until the next scan or a reconcile.
// @Tags Check Logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Check log ID"
// @Success 200 {object} models.CheckLog "The deleted entry"
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /checklogs/{id} [delete]
func (h *CheckLogHandler) DeleteCheckLog(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such check log"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	entry, err := h.engine.DeleteCheckLog(ctx, id)
	if err != nil {
		return respondError(c, err, "No such check log")
	}
	return c.JSON(entry)
}
