package handlers

import (
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RestrictionHandler binds restriction creation, revocation and the template catalog.
type RestrictionHandler struct {
	restrictions *services.RestrictionService
	audit        *services.AuditLog
}

func NewRestrictionHandler(restrictions *services.RestrictionService, audit *services.AuditLog) *RestrictionHandler {
	return &RestrictionHandler{restrictions: restrictions, audit: audit}
}

func toInput(subject uuid.UUID, in dto.RestrictionInput) services.RestrictionInput {
	return services.RestrictionInput{
		SubjectUserID: subject,
		TemplateID:    in.TemplateID,
		DurationHours: in.DurationHours,
		Scope:         in.Scope,
		Reason:        in.Reason,
		Details:       in.Details,
	}
}

func (h *RestrictionHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateRestrictionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	restriction, err := h.restrictions.CreateRestriction(c.UserContext(), actor, toInput(req.SubjectUserID, req.RestrictionInput))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(restriction)
}

// ResolveCase resolves a case by restricting its subject.
func (h *RestrictionHandler) ResolveCase(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	caseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid case ID")
	}
	var req dto.ResolveWithRestrictionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resolved, restriction, err := h.restrictions.ResolveWithRestriction(c.UserContext(), actor, caseID, services.ResolveOutcome{
		Restriction:  toInput(uuid.Nil, req.RestrictionInput),
		FeedbackNote: req.FeedbackNote,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ResolveWithRestrictionResponse{Case: resolved, Restriction: restriction})
}

func (h *RestrictionHandler) Revoke(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid restriction ID")
	}

	restriction, err := h.restrictions.Revoke(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(restriction)
}

func (h *RestrictionHandler) ListForSubject(c *fiber.Ctx) error {
	subject, err := uuid.Parse(c.Query("subject"))
	if err != nil {
		return badRequest(c, "subject query parameter is required")
	}
	list, err := h.restrictions.ListForSubject(c.UserContext(), subject)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"restrictions": list})
}

func (h *RestrictionHandler) Templates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": h.restrictions.ListTemplates()})
}

func (h *RestrictionHandler) Audit(c *fiber.Ctx) error {
	filter := services.AuditFilter{
		Kind:   models.AuditKind(c.Query("kind")),
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}
	for param, dst := range map[string]**uuid.UUID{
		"case_id":        &filter.CaseID,
		"restriction_id": &filter.RestrictionID,
		"actor_id":       &filter.ActorID,
	} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "Invalid "+param)
		}
		*dst = &id
	}

	events, err := h.audit.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}
