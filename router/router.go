package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visitor-management/config/middleware"
	_ "visitor-management/docs"
	"visitor-management/handlers"
	"visitor-management/models"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Visitors     *handlers.VisitorHandler
	Appointments *handlers.AppointmentHandler
	Passes       *handlers.PassHandler
	CheckLogs    *handlers.CheckLogHandler
	Reports      *handlers.ReportHandler
	Files        *handlers.FileHandler
	Tokens       middleware.TokenValidator
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

func SetupRoutes(app *fiber.App, h Handlers) {
	log.Info("registering routes")

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Visitor Management API",
			"status":  "running",
			"docs":    "/docs/index.html",
		})
	})
	app.Get("/docs/*", swagger.HandlerDefault)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)

	auth := middleware.AuthMiddleware(h.Tokens)
	adminOnly := middleware.AdminMiddleware()

	users := api.Group("/users", auth)
	users.Get("/", h.Auth.ListUsers)
	users.Get("/me", h.Auth.Me)

	api.Get("/files/:id", auth, h.Files.GetFile)

	visitors := api.Group("/visitors", auth)
	visitors.Get("/", h.Visitors.GetVisitors)
	visitors.Post("/", h.Visitors.CreateVisitor)
	visitors.Get("/:id", h.Visitors.GetVisitor)
	visitors.Put("/:id", h.Visitors.UpdateVisitor)
	visitors.Delete("/:id", h.Visitors.DeleteVisitor)
	visitors.Post("/:id/photo", h.Visitors.UploadVisitorPhoto)

	appointments := api.Group("/appointments", auth)
	appointments.Get("/", h.Appointments.GetAppointments)
	appointments.Post("/", h.Appointments.CreateAppointment)
	appointments.Get("/:id", h.Appointments.GetAppointment)
	appointments.Put("/:id", h.Appointments.UpdateAppointment)
	appointments.Delete("/:id", h.Appointments.DeleteAppointment)
	appointments.Get("/:id/occurrences", h.Appointments.GetOccurrences)
	appointments.Put("/:id/status", adminOnly, h.Appointments.UpdateAppointmentStatus)

	passes := api.Group("/passes", auth)
	passes.Get("/", h.Passes.GetPasses)
	passes.Post("/", h.Passes.CreatePass)
	passes.Get("/:id", h.Passes.GetPass)
	passes.Put("/:id", h.Passes.UpdatePass)
	passes.Delete("/:id", h.Passes.DeletePass)
	passes.Get("/:id/qr", h.Passes.GetPassQr)
	passes.Get("/:id/state", h.Passes.GetPassState)
	passes.Get("/:id/history", h.CheckLogs.GetPassHistory)
	passes.Post("/:id/cancel", h.Passes.CancelPass)
	passes.Post("/:id/reconcile", adminOnly, h.Passes.ReconcilePass)

	checkLogs := api.Group("/checklogs", auth)
	checkLogs.Get("/", h.CheckLogs.GetCheckLogs)
	checkLogs.Post("/scan", middleware.RoleMiddleware(models.RoleSecurity, models.RoleAdmin), h.CheckLogs.ScanPass)
	checkLogs.Get("/:id", h.CheckLogs.GetCheckLog)
	checkLogs.Delete("/:id", adminOnly, h.CheckLogs.DeleteCheckLog)

	reports := api.Group("/reports", auth, adminOnly)
	reports.Get("/summary", h.Reports.GetSummary)
	reports.Get("/daily-visits", h.Reports.GetDailyVisits)
	reports.Get("/host-visits", h.Reports.GetHostVisits)
	reports.Get("/visits-export", h.Reports.GetVisitsExport)

	log.Infof("%d routes registered, swagger documentation at /docs/index.html", len(app.GetRoutes(true)))
}
