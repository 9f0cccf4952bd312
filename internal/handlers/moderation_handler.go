package handlers

import (
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ModerationHandler serves the user-facing intake: reports and applications.
type ModerationHandler struct {
	intake *services.IntakeService
}

func NewModerationHandler(intake *services.IntakeService) *ModerationHandler {
	return &ModerationHandler{intake: intake}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.intake.SubmitReport(c.UserContext(), services.ReportSubmission{
		SubjectUserID: req.SubjectUserID,
		ReporterID:    userID,
		Reason:        req.Reason,
		Details:       req.Details,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) CreateApplication(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	app, err := h.intake.SubmitApplication(c.UserContext(), services.ApplicationSubmission{
		ApplicantID:           userID,
		PositionID:            req.PositionID,
		Responses:             req.Responses,
		TimeToCompleteSeconds: req.TimeToComplete,
		Draft:                 req.Draft,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

func (h *ModerationHandler) SubmitDraft(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	caseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid application ID")
	}

	app, err := h.intake.SubmitDraft(c.UserContext(), userID, caseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}
