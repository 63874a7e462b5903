package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/labstack/gommon/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
)

type ReportSource interface {
	Summary(ctx context.Context, rng models.ReportRange) (*models.ReportSummary, error)
	DailyVisits(ctx context.Context, rng models.ReportRange, loc *time.Location) ([]models.DailyVisit, error)
	HostVisits(ctx context.Context, rng models.ReportRange, hostID *primitive.ObjectID) ([]models.HostVisit, error)
	VisitsExport(ctx context.Context, rng models.ReportRange) ([]models.CheckLogWithDetails, error)
}

type ReportHandler struct {
	reports ReportSource
	loc     *time.Location
}

// NewReportHandler groups daily figures by calendar day in loc.
func NewReportHandler(reports ReportSource, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reports: reports, loc: loc}
}

// GetSummary godoc
// @Summary Summary Report
// @Description Admin only. Pass and gate event totals for records created in range.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Range end (YYYY-MM-DD or RFC3339)"
// @Success 200 {object} models.ReportSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /reports/summary [get]
func (h *ReportHandler) GetSummary(c *fiber.Ctx) error {
	rng, err := parseRange(c, h.loc)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	summary, err := h.reports.Summary(ctx, rng)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(summary)
}

// GetDailyVisits godoc
// @Summary Daily Visits
// @Description Admin only. Check-ins per day, oldest day first.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Range end (YYYY-MM-DD or RFC3339)"
// @Success 200 {array} models.DailyVisit
// @Failure 400 {object} models.ErrorResponse
// @Router /reports/daily-visits [get]
func (h *ReportHandler) GetDailyVisits(c *fiber.Ctx) error {
	rng, err := parseRange(c, h.loc)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	days, err := h.reports.DailyVisits(ctx, rng, h.loc)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(days)
}

// GetHostVisits godoc
// @Summary Host Visits
// @Description Admin only. Passes issued per host, busiest first.
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Range end (YYYY-MM-DD or RFC3339)"
// @Param host query string false "Host user ID"
// @Success 200 {array} models.HostVisit
// @Failure 400 {object} models.ErrorResponse
// @Router /reports/host-visits [get]
func (h *ReportHandler) GetHostVisits(c *fiber.Ctx) error {
	rng, err := parseRange(c, h.loc)
	if err != nil {
		return badRequest(c, err.Error())
	}
	hostID, err := optionalObjectID(c.Query("host"))
	if err != nil {
		return badRequest(c, "Invalid host ID")
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	hosts, err := h.reports.HostVisits(ctx, rng, hostID)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(hosts)
}

// GetVisitsExport godoc
// @Summary Export Visits
// @Description Admin only. Every gate event in range, newest first, as JSON or CSV.
// @Tags Reports
// @Produce json,text/csv
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Range end (YYYY-MM-DD or RFC3339)"
// @Param format query string false "json (default) or csv"
// @Success 200 {array} models.CheckLogWithDetails
// @Failure 400 {object} models.ErrorResponse
// @Router /reports/visits-export [get]
func (h *ReportHandler) GetVisitsExport(c *fiber.Ctx) error {
	format := strings.ToLower(c.Query("format", "json"))
	if format != "json" && format != "csv" {
		return badRequest(c, "format must be json or csv")
	}
	rng, err := parseRange(c, h.loc)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	logs, err := h.reports.VisitsExport(ctx, rng)
	if err != nil {
		return respondError(c, err, "")
	}
	if format == "json" {
		return c.JSON(logs)
	}

	body, err := visitsCSV(logs, h.loc)
	if err != nil {
		log.Errorf("failed to render visits export: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to render export"})
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"visits-%s.csv\"", time.Now().In(h.loc).Format("20060102")))
	return c.Send(body)
}

var visitsCSVHeader = []string{
	"timestamp", "action", "gate", "pass_number",
	"visitor_name", "visitor_email", "visitor_company",
	"host_name", "host_email", "security_name",
}

func visitsCSV(logs []models.CheckLogWithDetails, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(visitsCSVHeader); err != nil {
		return nil, err
	}
	for _, entry := range logs {
		row := []string{
			entry.CreatedAt.In(loc).Format(time.RFC3339),
			string(entry.Action),
			entry.Gate,
			"", "", "", "", "", "", "",
		}
		if p := entry.Pass; p != nil {
			row[3] = p.PassNumber
			if v := p.Visitor; v != nil {
				row[4], row[5], row[6] = v.Name, v.Email, v.Company
			}
			if host := p.Host; host != nil {
				row[7], row[8] = host.Name, host.Email
			}
		}
		if s := entry.SecurityUser; s != nil {
			row[9] = s.Name
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
