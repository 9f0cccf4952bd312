package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS admits the moderation console. Every route is a GET or a POST, and the
// request id set by the requestid middleware is readable by the browser.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: strings.Join([]string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAuthorization,
			fiber.HeaderAccept,
			fiber.HeaderXRequestID,
		}, ", "),
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ", "),
		ExposeHeaders: fiber.HeaderXRequestID,
		MaxAge:        600,
	})
}
