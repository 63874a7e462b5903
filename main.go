package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"visitor-management/config"
	"visitor-management/handlers"
	"visitor-management/pkg/locker"
	"visitor-management/pkg/notify"
	"visitor-management/pkg/paseto"
	"visitor-management/pkg/qr"
	"visitor-management/repository"
	"visitor-management/router"
	"visitor-management/seeder"
	"visitor-management/service"
)

var (
	_ service.PassStore         = (*repository.PassRepository)(nil)
	_ service.CheckLogStore     = (*repository.CheckLogRepository)(nil)
	_ service.UserLookup        = (*repository.UserRepository)(nil)
	_ handlers.UserStore        = (*repository.UserRepository)(nil)
	_ handlers.PassQueries      = (*repository.PassRepository)(nil)
	_ handlers.CheckLogQueries  = (*repository.CheckLogRepository)(nil)
	_ handlers.ReportSource     = (*repository.ReportRepository)(nil)
	_ handlers.PhotoStore       = (*repository.PhotoRepository)(nil)
	_ service.QRGenerator       = (*qr.Generator)(nil)
	_ service.Notifier          = (*service.MailNotifier)(nil)
	_ locker.Locker             = (*locker.RedisLocker)(nil)
	_ handlers.TokenIssuer      = (*paseto.Maker)(nil)
	_ service.AppointmentLookup = (repository.AppointmentRepository)(nil)
)

// @title Visitor Management API
// @version 1.0
// @description Visitor registration, appointments, QR passes and gate check-in/check-out.
//
// @host localhost:3000
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the PASETO token.
//
// @tag.name Auth
// @tag.description Registration and login
//
// @tag.name Visitors
// @tag.description Visitor directory
//
// @tag.name Appointments
// @tag.description Scheduled visits and their approval
//
// @tag.name Passes
// @tag.description Pass issuance and lifecycle
//
// @tag.name Check Logs
// @tag.description Gate scans and the check-in/check-out ledger
//
// @tag.name Reports
// @tag.description Admin reports
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.SetLevel(cfg.LogLevel)
	log.SetHeader("${time_rfc3339} ${level} ${short_file}:${line}")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := config.MongoConnect(ctx, cfg.MONGOSTRING)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer config.DisconnectDB()

	db := client.Database(cfg.MongoDB)
	if err := config.InitDatabase(ctx, db); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	bucket, err := config.GetGridFSBucket(db)
	if err != nil {
		log.Fatalf("gridfs: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	visitorRepo := repository.NewVisitorRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	passRepo := repository.NewPassRepository(db)
	checkLogRepo := repository.NewCheckLogRepository(db)
	reportRepo := repository.NewReportRepository(db)
	photoRepo := repository.NewPhotoRepository(bucket)

	if cfg.SeedUsers {
		if _, err := seeder.SeedUsers(ctx, userRepo); err != nil {
			log.Errorf("seeding users failed: %v", err)
		}
	}

	var passLocker locker.Locker = locker.NewKeyedMutex()
	redisClient, err := config.RedisConnect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		passLocker = locker.NewRedisLocker(redisClient, "visitor:pass-lock:", cfg.ScanLockTTL)
		log.Info("using redis for pass locks")
	}

	tokens, err := paseto.NewPasetoMaker(cfg.PASETO_SECRET, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("paseto: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mailer := notify.New(cfg.SendGridAPIKey, cfg.FromEmail)
	notifier := service.NewMailNotifier(mailer, userRepo, visitorRepo)

	ledger := service.NewLedger(checkLogRepo)
	engine := service.NewPassEngine(service.EngineDeps{
		Passes:       passRepo,
		Ledger:       ledger,
		QR:           qr.NewGenerator(),
		Visitors:     visitorRepo,
		Appointments: appointmentRepo,
		Locker:       passLocker,
		Notifier:     notifier,
		Metrics:      service.NewMetrics(registry),
	})

	sweeper := service.NewExpirySweeper(engine, cfg.PassExpirySweep)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:   "Visitor Management API",
		BodyLimit: 6 * 1024 * 1024,
	})
	app.Use(recover.New())
	config.SetupCORS(app, cfg.AllowedOrigins...)
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} - ${method} ${path} - ${status} - ${latency}\n",
	}))

	router.SetupRoutes(app, router.Handlers{
		Auth:         handlers.NewAuthHandler(userRepo, tokens),
		Visitors:     handlers.NewVisitorHandler(visitorRepo, photoRepo),
		Appointments: handlers.NewAppointmentHandler(appointmentRepo, visitorRepo, notifier),
		Passes:       handlers.NewPassHandler(engine, passRepo),
		CheckLogs:    handlers.NewCheckLogHandler(engine, ledger, checkLogRepo),
		Reports:      handlers.NewReportHandler(reportRepo, cfg.ReportLocation),
		Files:        handlers.NewFileHandler(photoRepo),
		Tokens:       tokens,
		Metrics:      registry,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("Server running on port %s", cfg.Port)
	log.Infof("API Documentation: http://localhost:%s/docs/index.html", cfg.Port)
	log.Infof("CORS enabled for origins: %v", append(config.GetAllowedOrigins(), cfg.AllowedOrigins...))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Errorf("server stopped: %v", err)
	}
}
