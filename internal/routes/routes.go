package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/config"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

type Handlers struct {
	Health      *handlers.HealthHandler
	Moderation  *handlers.ModerationHandler
	Cases       *handlers.CaseHandler
	Restriction *handlers.RestrictionHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Intake from platform users (JWT required)
	api.Post("/reports", middleware.JWTProtected(cfg), h.Moderation.CreateReport)
	api.Post("/applications", middleware.JWTProtected(cfg), h.Moderation.CreateApplication)
	api.Post("/applications/:id/submit", middleware.JWTProtected(cfg), h.Moderation.SubmitDraft)

	// Staff workflow (JWT + moderator tier)
	staff := api.Group("/staff", middleware.JWTProtected(cfg), middleware.StaffRequired(db, cfg, models.TierModerator))
	staff.Get("/cases", h.Cases.ListOpen)
	staff.Get("/cases/:id", h.Cases.Detail)
	staff.Post("/cases/:id/claim", h.Cases.Claim())
	staff.Post("/cases/:id/release", h.Cases.Release())
	staff.Post("/cases/:id/heartbeat", h.Cases.Heartbeat())
	staff.Post("/cases/:id/open", h.Cases.Open())
	staff.Post("/cases/:id/transition", h.Cases.Transition())
	staff.Post("/cases/:id/restrict", h.Restriction.ResolveCase)
	staff.Post("/restriction-requests", h.Cases.CreateRestrictionRequest)
	staff.Post("/restrictions", h.Restriction.Create)
	staff.Get("/restrictions", h.Restriction.ListForSubject)
	staff.Get("/templates", h.Restriction.Templates)
	staff.Get("/audit", h.Restriction.Audit)

	// Group middleware applies to the whole prefix, so the senior tier is
	// attached to the single route instead of a second /staff group.
	staff.Post("/restrictions/:id/revoke", middleware.StaffRequired(db, cfg, models.TierHeadModerator), h.Restriction.Revoke)

	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.StaffRequired(db, cfg, models.TierAdmin))
	admin.Post("/cases/:id/archive", h.Cases.Archive)
}
