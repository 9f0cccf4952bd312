package middleware

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorLocal = "actor"

// GetUserID returns the caller resolved by JWTProtected, falling back to the
// raw "sub" claim.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	if caller, ok := c.Locals(callerLocal).(uuid.UUID); ok {
		return caller, nil
	}
	claims, err := getClaims(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

// GetActor returns the staff actor resolved by StaffRequired.
func GetActor(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(actorLocal).(models.Actor)
	return actor, ok
}

func getClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
