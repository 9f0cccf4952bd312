package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	resp := dto.HealthResponse{Status: "ok", DB: "ok", Timestamp: dto.FormatTime(time.Now())}
	if err := h.db.PingContext(ctx); err != nil {
		status = fiber.StatusServiceUnavailable
		resp.Status = "degraded"
		resp.DB = "unhealthy: " + err.Error()
	}
	return c.Status(status).JSON(resp)
}
