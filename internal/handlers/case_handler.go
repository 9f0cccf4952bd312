package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/dto"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CaseHandler binds the staff case workflow: queries, claims and transitions.
type CaseHandler struct {
	queries  *services.QueryService
	claims   *services.ClaimService
	workflow *services.WorkflowService
	intake   *services.IntakeService
}

func NewCaseHandler(queries *services.QueryService, claims *services.ClaimService, workflow *services.WorkflowService, intake *services.IntakeService) *CaseHandler {
	return &CaseHandler{queries: queries, claims: claims, workflow: workflow, intake: intake}
}

func (h *CaseHandler) ListOpen(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	filter := services.CaseFilter{
		CaseType:          models.CaseType(c.Query("type")),
		Status:            models.CaseStatus(c.Query("status")),
		IncludeDuplicates: c.QueryBool("include_duplicates", false),
		Limit:             limit,
		Offset:            offset,
	}
	if filter.CaseType != "" && !filter.CaseType.Valid() {
		return badRequest(c, "Invalid case type")
	}
	if v := c.Query("subject"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "Invalid subject ID")
		}
		filter.SubjectUserID = &id
	}
	if v := c.Query("claimed_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "Invalid claimed_by ID")
		}
		filter.ClaimedBy = &id
	}

	cases, total, err := h.queries.ListOpenCases(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CaseListResponse{Cases: cases, Total: total, Limit: limit, Offset: offset})
}

func (h *CaseHandler) Detail(c *fiber.Ctx) error {
	caseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid case ID")
	}
	detail, err := h.queries.GetCaseDetail(c.UserContext(), caseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CaseDetailResponse{
		Case:              detail.Case,
		ActiveRestriction: detail.ActiveRestriction,
		RestrictionCount:  detail.RestrictionCount,
		DuplicateCount:    detail.DuplicateCount,
		Audit:             detail.Audit,
	})
}

// caseOp is the shape shared by claim, release, heartbeat and open.
type caseOp func(c *fiber.Ctx, actor models.Actor, caseID uuid.UUID) (*models.Case, error)

func (h *CaseHandler) run(op caseOp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := middleware.GetActor(c)
		if !ok {
			return unauthorized(c)
		}
		caseID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "Invalid case ID")
		}
		out, err := op(c, actor, caseID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	}
}

func (h *CaseHandler) Claim() fiber.Handler {
	return h.run(func(c *fiber.Ctx, actor models.Actor, id uuid.UUID) (*models.Case, error) {
		return h.claims.Claim(c.UserContext(), actor, id)
	})
}

func (h *CaseHandler) Release() fiber.Handler {
	return h.run(func(c *fiber.Ctx, actor models.Actor, id uuid.UUID) (*models.Case, error) {
		return h.claims.Release(c.UserContext(), actor, id)
	})
}

func (h *CaseHandler) Heartbeat() fiber.Handler {
	return h.run(func(c *fiber.Ctx, actor models.Actor, id uuid.UUID) (*models.Case, error) {
		return h.claims.Heartbeat(c.UserContext(), actor, id)
	})
}

func (h *CaseHandler) Open() fiber.Handler {
	return h.run(func(c *fiber.Ctx, actor models.Actor, id uuid.UUID) (*models.Case, error) {
		return h.workflow.Open(c.UserContext(), actor, id)
	})
}

func (h *CaseHandler) Transition() fiber.Handler {
	return h.run(func(c *fiber.Ctx, actor models.Actor, id uuid.UUID) (*models.Case, error) {
		var req dto.TransitionRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, &services.ValidationError{Field: "body", Reason: "invalid request body"}
		}
		return h.workflow.Transition(c.UserContext(), actor, id, services.TransitionRequest{
			Status:          req.Status,
			Note:            req.Note,
			ExpectedVersion: req.ExpectedVersion,
		})
	})
}

func (h *CaseHandler) Archive(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	caseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid case ID")
	}
	if err := h.workflow.Archive(c.UserContext(), actor, caseID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Case archived"})
}

func (h *CaseHandler) CreateRestrictionRequest(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateRestrictionCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := h.intake.CreateRestrictionRequest(c.UserContext(), actor, services.RestrictionRequestSubmission{
		SubjectUserID: req.SubjectUserID,
		TemplateID:    req.TemplateID,
		DurationHours: req.DurationHours,
		Scope:         req.Scope,
		Reason:        req.Reason,
		Details:       req.Details,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
