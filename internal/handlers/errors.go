package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/services"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError maps engine error kinds to status codes and structured bodies.
// Anything that is not a named kind is a storage fault: logged, reported to
// Sentry and hidden from the caller.
func respondError(c *fiber.Ctx, err error) error {
	body := dto.ErrorResponse{Error: true, Message: err.Error()}
	status := fiber.StatusInternalServerError

	var (
		claimed    *services.AlreadyClaimedError
		transition *services.InvalidTransitionError
		validation *services.ValidationError
		restricted *services.AlreadyRestrictedError
	)
	switch {
	case errors.As(err, &claimed):
		status, body.Code = fiber.StatusConflict, "already_claimed"
		body.ClaimedBy = &claimed.By
	case errors.Is(err, services.ErrAlreadyRestricted):
		status, body.Code = fiber.StatusConflict, "already_restricted"
		if errors.As(err, &restricted) && restricted.RestrictionID != uuid.Nil {
			body.Blocking = &restricted.RestrictionID
		}
	case errors.Is(err, services.ErrAlreadyResolved):
		status, body.Code = fiber.StatusConflict, "already_resolved"
	case errors.Is(err, services.ErrVersionConflict):
		status, body.Code = fiber.StatusConflict, "version_conflict"
	case errors.As(err, &transition):
		status, body.Code = fiber.StatusConflict, "invalid_transition"
		body.From, body.To = string(transition.From), string(transition.To)
	case errors.Is(err, services.ErrNotClaimedByActor):
		status, body.Code = fiber.StatusConflict, "not_claimed_by_actor"
	case errors.Is(err, services.ErrNotActive):
		status, body.Code = fiber.StatusConflict, "not_active"
	case errors.As(err, &validation):
		status, body.Code = fiber.StatusUnprocessableEntity, "validation_failed"
		body.Field = validation.Field
	case errors.Is(err, services.ErrNotFound):
		status, body.Code = fiber.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrPermissionDenied):
		status, body.Code = fiber.StatusForbidden, "permission_denied"
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		body.Code = "internal"
		body.Message = "Internal server error"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Code: "bad_request", Message: message,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Code: "unauthorized", Message: "Unauthorized",
	})
}
