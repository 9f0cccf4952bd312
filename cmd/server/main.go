package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/config"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/database"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/logging"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/routes"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/services"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Template catalog (read-only)
	templates, err := catalog.LoadFromFile(cfg.TemplatesPath)
	if err != nil {
		slog.Error("failed to load restriction templates", "path", cfg.TemplatesPath, "error", err)
		os.Exit(1)
	}
	slog.Info("restriction templates loaded", "templates", len(templates.All()))

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout),
		pgLogHandler,
	)))

	// Background sweeps
	done := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, done)

	// Tracing
	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.OTELEndpoint, "modqueue", cfg.AppEnv)
	if err != nil {
		slog.Error("tracing init failed", "error", err)
	}

	// Engine
	caseStore := services.NewCaseStore(database.DB)
	auditLog := services.NewAuditLog(database.DB)
	claimService := services.NewClaimService(database.DB, caseStore, auditLog, cfg.ClaimLease)
	workflowService := services.NewWorkflowService(database.DB, caseStore, auditLog, claimService)
	restrictionService := services.NewRestrictionService(database.DB, caseStore, auditLog, templates, cfg.MinDetailsLength)
	intakeService := services.NewIntakeService(database.DB, caseStore, auditLog, templates, cfg.MinDetailsLength)
	queryService := services.NewQueryService(caseStore, auditLog, restrictionService)

	services.StartLeaseSweeper(claimService, cfg.LeaseSweepInterval, done)
	if cfg.ClaimLease > 0 {
		slog.Info("claim lease enabled", "lease", cfg.ClaimLease.String())
	}

	// Handlers
	sqlDB, err := database.DB.DB()
	if err != nil {
		slog.Error("failed to get sql.DB", "error", err)
		os.Exit(1)
	}
	h := routes.Handlers{
		Health:      handlers.NewHealthHandler(sqlDB),
		Moderation:  handlers.NewModerationHandler(intakeService),
		Cases:       handlers.NewCaseHandler(queryService, claimService, workflowService, intakeService),
		Restriction: handlers.NewRestrictionHandler(restrictionService, auditLog),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(done)
	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		slog.Error("tracing shutdown error", "error", err)
	}
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := sqlDB.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
