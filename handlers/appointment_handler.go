package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	util "visitor-management/pkg/utils"
	"visitor-management/repository"
	"visitor-management/service"
)

type AppointmentHandler struct {
	appointments repository.AppointmentRepository
	visitors     service.VisitorLookup
	notifier     service.Notifier
}

func NewAppointmentHandler(appointments repository.AppointmentRepository, visitors service.VisitorLookup, notifier service.Notifier) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		visitors:     visitors,
		notifier:     notifier,
	}
}

// GetAppointments godoc
// @Summary List Appointments
// @Description Lists appointments ordered by scheduled time with visitor and host populated. Non-admins only see their own.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, rejected or cancelled"
// @Param host query string false "Host user ID"
// @Param visitor query string false "Visitor ID"
// @Param from query string false "Earliest date_time (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Latest date_time (YYYY-MM-DD or RFC3339)"
// @Success 200 {array} models.AppointmentWithDetails
// @Failure 400 {object} models.ErrorResponse
// @Router /appointments [get]
func (h *AppointmentHandler) GetAppointments(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	filter := repository.AppointmentFilter{
		Status:    models.AppointmentStatus(c.Query("status")),
		CreatedBy: ownerScope(claims),
	}
	switch filter.Status {
	case "", models.AppointmentPending, models.AppointmentApproved, models.AppointmentRejected, models.AppointmentCancelled:
	default:
		return badRequest(c, "Invalid status filter")
	}
	if filter.HostID, err = optionalObjectID(c.Query("host")); err != nil {
		return badRequest(c, "Invalid host ID")
	}
	if filter.VisitorID, err = optionalObjectID(c.Query("visitor")); err != nil {
		return badRequest(c, "Invalid visitor ID")
	}
	rng, err := parseRange(c, time.UTC)
	if err != nil {
		return badRequest(c, err.Error())
	}
	filter.From, filter.To = rng.From, rng.To

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	appointments, err := h.appointments.List(ctx, filter)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(appointments)
}

// GetAppointment godoc
// @Summary Get Appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.AppointmentWithDetails
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) GetAppointment(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	appt, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}
	details, err := h.appointments.FindWithDetails(ctx, appt.ID)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}
	return c.JSON(details)
}

// CreateAppointment godoc
// @Summary Schedule Appointment
// @Description Creates a pending appointment. recurrence_rule is an RFC 5545 RRULE anchored at date_time.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param appointment body models.AppointmentCreatePayload true "Appointment data"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} models.ValidationErrorResponse
// @Router /appointments [post]
func (h *AppointmentHandler) CreateAppointment(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	var payload models.AppointmentCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	payload.Purpose = strings.TrimSpace(payload.Purpose)

	var empty []string
	if payload.Visitor == "" {
		empty = append(empty, "visitor")
	}
	if payload.Host == "" {
		empty = append(empty, "host")
	}
	if payload.Purpose == "" {
		empty = append(empty, "purpose")
	}
	if payload.DateTime == nil || payload.DateTime.IsZero() {
		empty = append(empty, "date_time")
	}
	if len(empty) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": service.MsgMissingFields, "empty_fields": empty})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errors})
	}

	visitorID, _ := primitive.ObjectIDFromHex(payload.Visitor)
	hostID, _ := primitive.ObjectIDFromHex(payload.Host)

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	if h.visitors != nil {
		if _, err := h.visitors.FindByID(ctx, visitorID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Visitor does not exist", "fields": []string{"visitor"}})
			}
			return respondError(c, err, "")
		}
	}

	appt := &models.Appointment{
		VisitorID:      visitorID,
		HostID:         hostID,
		Purpose:        payload.Purpose,
		DateTime:       payload.DateTime.UTC(),
		Notes:          payload.Notes,
		RecurrenceRule: payload.RecurrenceRule,
		Status:         models.AppointmentPending,
		CreatedBy:      claims.UserID,
	}
	if err := h.appointments.Create(ctx, appt); err != nil {
		return respondError(c, err, "")
	}
	return c.Status(fiber.StatusCreated).JSON(appt)
}

// UpdateAppointment godoc
// @Summary Update Appointment
// @Description Edits purpose, schedule, notes, host or recurrence. Status has its own endpoint.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param appointment body models.AppointmentUpdatePayload true "Fields to change"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ValidationErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /appointments/{id} [put]
func (h *AppointmentHandler) UpdateAppointment(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	var payload models.AppointmentUpdatePayload
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
		return respondError(c, err, "No such appointment")
	}
	appt, err := h.appointments.Update(ctx, existing.ID, &payload)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}
	return c.JSON(appt)
}

// UpdateAppointmentStatus godoc
// @Summary Change Appointment Status
// @Description Admin only. pending may become approved, rejected or cancelled; approved may become cancelled.
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param status body models.AppointmentStatusPayload true "New status"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse "Invalid status"
// @Failure 404 {object} models.NotFoundErrorResponse
// @Failure 409 {object} models.ErrorResponse "Transition not allowed"
// @Router /appointments/{id}/status [put]
func (h *AppointmentHandler) UpdateAppointmentStatus(c *fiber.Ctx) error {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No such appointment"})
	}

	var payload models.AppointmentStatusPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}
	if errors := util.ValidateStruct(payload); errors != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status", "errors": errors})
	}
	next := models.AppointmentStatus(payload.Status)

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	current, err := h.appointments.FindByID(ctx, id)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}
	if err := service.NextAppointmentStatus(current.Status, next); err != nil {
		return respondError(c, err, "")
	}

	appt, err := h.appointments.UpdateStatus(ctx, id, current.Status, next)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}
	if next == models.AppointmentApproved && h.notifier != nil {
		h.notifier.AppointmentApproved(ctx, appt)
	}
	return c.JSON(appt)
}

// GetOccurrences godoc
// @Summary Expand Appointment Recurrence
// @Description Lists the scheduled times of an appointment inside [from, to]. Defaults to one year starting at date_time.
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param from query string false "Window start (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Window end (YYYY-MM-DD or RFC3339)"
// @Success 200 {object} object{appointment_id=string,occurrences=[]string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /appointments/{id}/occurrences [get]
func (h *AppointmentHandler) GetOccurrences(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}
	rng, err := parseRange(c, time.UTC)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	appt, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}

	from := appt.DateTime
	if rng.From != nil {
		from = *rng.From
	}
	to := from.AddDate(1, 0, 0)
	if rng.To != nil {
		to = *rng.To
	}
	occurrences, err := util.ExpandRecurrence(appt.RecurrenceRule, appt.DateTime, from, to)
	if err != nil {
		return badRequest(c, fmt.Sprintf("Cannot expand recurrence: %v", err))
	}
	return c.JSON(fiber.Map{
		"appointment_id": appt.ID,
		"occurrences":    occurrences,
	})
}

// DeleteAppointment godoc
// @Summary Delete Appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.Appointment "The deleted appointment"
// @Failure 404 {object} models.NotFoundErrorResponse
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) DeleteAppointment(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if claims == nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	appt, err := h.findOwned(ctx, c, claims)
	if err != nil {
		return respondError(c, err, "No such appointment")
	}
	if err := h.appointments.Delete(ctx, appt.ID); err != nil {
		return respondError(c, err, "No such appointment")
	}
	return c.JSON(appt)
}

func (h *AppointmentHandler) findOwned(ctx context.Context, c *fiber.Ctx, claims *models.Claims) (*models.Appointment, error) {
	id, err := paramObjectID(c, "id")
	if err != nil {
		return nil, repository.ErrNotFound
	}
	appt, err := h.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() && appt.CreatedBy != claims.UserID {
		return nil, repository.ErrNotFound
	}
	return appt, nil
}
