package middleware

import (
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/config"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const callerLocal = "caller"

// JWTProtected verifies tokens issued by the platform's identity service.
// Reports and applications are filed in the caller's name, so a token must
// carry a user id in "sub"; the parsed id is kept for GetUserID.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			claims, err := getClaims(c)
			if err != nil {
				return unauthorized(c, "Unauthorized: invalid claims")
			}
			sub, _ := claims["sub"].(string)
			caller, err := uuid.Parse(sub)
			if err != nil || caller == uuid.Nil {
				return unauthorized(c, "Invalid subject claim")
			}
			c.Locals(callerLocal, caller)
			return c.Next()
		},
	})
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    "unauthorized",
		Message: message,
	})
}
