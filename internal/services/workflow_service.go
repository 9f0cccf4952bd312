package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// WorkflowService applies status transitions to cases.
type WorkflowService struct {
	db     *gorm.DB
	store  *CaseStore
	audit  *AuditLog
	claims *ClaimService
	now    func() time.Time
}

func NewWorkflowService(db *gorm.DB, store *CaseStore, audit *AuditLog, claims *ClaimService) *WorkflowService {
	return &WorkflowService{db: db, store: store, audit: audit, claims: claims, now: utcNow}
}

// Open marks a case as seen by staff. A submitted application moves to
// in_review the first time; every later call is a no-op returning the case.
func (s *WorkflowService) Open(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.Case, error) {
	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}
	return s.open(ctx, actor, caseID, nil)
}

func (s *WorkflowService) open(ctx context.Context, actor models.Actor, caseID uuid.UUID, pin *int64) (*models.Case, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.store.Get(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if pin != nil && current.Version != *pin {
			return nil, ErrVersionConflict
		}
		if current.CaseType != models.CaseTypeApplication || current.Status != models.StatusSubmitted {
			return current, nil
		}

		var out *models.Case
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			updated, err := s.store.WithTx(tx).Update(ctx, caseID, current.Version, func(c *models.Case) error {
				c.Status = models.StatusInReview
				return nil
			})
			if err != nil {
				return err
			}
			out = updated
			return s.audit.WithTx(tx).Record(ctx, transitionEvent(actor.ID, updated, models.StatusSubmitted, models.StatusInReview))
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrVersionConflict
}

// TransitionRequest asks for a case to move to Status. ExpectedVersion, when
// set, pins the write to the version the caller last saw.
type TransitionRequest struct {
	Status          models.CaseStatus
	Note            string
	ExpectedVersion *int64
}

// Transition moves a case to the requested status, dispatching claim edges to
// the claim manager and terminal edges to Resolve.
func (s *WorkflowService) Transition(ctx context.Context, actor models.Actor, caseID uuid.UUID, req TransitionRequest) (c *models.Case, err error) {
	ctx, span := startSpan(ctx, "WorkflowService.Transition",
		attribute.String("case_id", caseID.String()), attribute.String("to", string(req.Status)))
	defer func() { endSpan(span, err) }()

	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return nil, ErrVersionConflict
	}

	switch {
	case IsTerminal(req.Status):
		return s.resolve(ctx, actor, current, req)
	case req.Status == ClaimedStatus(current.CaseType) && current.CaseType != models.CaseTypeApplication:
		return s.claims.claim(ctx, actor, caseID, req.ExpectedVersion)
	case req.Status == models.StatusOpen && current.CaseType != models.CaseTypeApplication:
		return s.claims.release(ctx, actor, caseID, req.ExpectedVersion)
	case req.Status == models.StatusInReview && current.CaseType == models.CaseTypeApplication:
		return s.open(ctx, actor, caseID, req.ExpectedVersion)
	}
	if IsTerminal(current.Status) {
		return nil, &AlreadyResolvedError{Status: current.Status}
	}
	return nil, &InvalidTransitionError{From: current.Status, To: req.Status}
}

func (s *WorkflowService) resolve(ctx context.Context, actor models.Actor, current *models.Case, req TransitionRequest) (*models.Case, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var out *models.Case
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			resolved, err := resolveCase(ctx, s.store.WithTx(tx), s.audit.WithTx(tx), actor, current, req.Status, req.Note, s.now())
			out = resolved
			return err
		})
		if errors.Is(err, ErrVersionConflict) && req.ExpectedVersion == nil {
			if current, err = s.store.Get(ctx, current.ID); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("case resolved", "case_id", out.ID, "actor_id", actor.ID, "status", out.Status)
		return out, nil
	}
	return nil, ErrVersionConflict
}

// checkResolvable validates that actor may move current into the terminal status to.
// Reports and restriction requests need the actor's claim; applications only
// need that nobody else holds one.
func checkResolvable(actor models.Actor, current *models.Case, to models.CaseStatus) error {
	if IsTerminal(current.Status) {
		return &AlreadyResolvedError{Status: current.Status}
	}
	if current.CaseType == models.CaseTypeApplication {
		if current.ClaimedBy != nil && *current.ClaimedBy != actor.ID {
			return &AlreadyClaimedError{By: *current.ClaimedBy}
		}
	} else if !current.IsClaimedBy(actor.ID) {
		return ErrNotClaimedByActor
	}
	return CheckTransition(current.CaseType, current.Status, to)
}

// resolveCase writes the terminal transition of current and, for a primary
// report, of its open duplicates. Run it inside a transaction.
func resolveCase(ctx context.Context, store *CaseStore, audit *AuditLog, actor models.Actor, current *models.Case, to models.CaseStatus, note string, now time.Time) (*models.Case, error) {
	if err := checkResolvable(actor, current, to); err != nil {
		return nil, err
	}
	from := current.Status

	updated, err := store.Update(ctx, current.ID, current.Version, func(c *models.Case) error {
		c.Status = to
		c.ClaimedBy = nil
		c.ClaimedAt = nil
		c.ResolvedAt = &now
		if c.CaseType == models.CaseTypeApplication || note != "" {
			feedback := note
			c.FeedbackNote = &feedback
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := audit.Record(ctx, transitionEvent(actor.ID, updated, from, to)); err != nil {
		return nil, err
	}

	if updated.CaseType != models.CaseTypeReport || updated.Report == nil || updated.Report.DuplicateOf != nil {
		return updated, nil
	}
	duplicates, err := store.openDuplicatesOf(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	for i := range duplicates {
		dup := &duplicates[i]
		resolvedDup, err := store.Update(ctx, dup.ID, dup.Version, func(c *models.Case) error {
			c.Status = models.StatusResolved
			c.ResolvedAt = &now
			c.FeedbackNote = updated.FeedbackNote
			return nil
		})
		if err != nil {
			return nil, err
		}
		event := transitionEvent(actor.ID, resolvedDup, models.StatusOpen, models.StatusResolved)
		if err := audit.Record(ctx, withDetails(event, map[string]interface{}{"duplicate_of": updated.ID.String()})); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// Archive hides a terminal case from every query. Only admins archive.
func (s *WorkflowService) Archive(ctx context.Context, actor models.Actor, caseID uuid.UUID) error {
	if err := requireTier(actor, models.TierAdmin); err != nil {
		return err
	}
	current, err := s.store.Get(ctx, caseID)
	if err != nil {
		return err
	}
	if !IsTerminal(current.Status) {
		return &InvalidTransitionError{From: current.Status, To: "archived"}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		updated, err := s.store.WithTx(tx).Update(ctx, caseID, current.Version, func(c *models.Case) error {
			c.ArchivedAt = &now
			return nil
		})
		if err != nil {
			return err
		}
		return s.audit.WithTx(tx).Record(ctx, caseEvent(models.AuditArchived, actor.ID, updated))
	})
}
