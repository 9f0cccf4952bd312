package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// DefaultMinDetailsLength is the minimum staff-internal detail text a restriction needs.
const DefaultMinDetailsLength = 10

// TemplateSource is the read-only restriction template catalog.
type TemplateSource interface {
	Get(id string) (models.Template, bool)
	All() []models.Template
}

// RestrictionInput is what a moderator submits to restrict a subject.
// DurationHours nil or DurationUnset falls back to the template default;
// DurationPermanent asks for no end.
type RestrictionInput struct {
	SubjectUserID uuid.UUID
	TemplateID    string
	DurationHours *int
	Scope         models.RestrictionScope
	Reason        string
	Details       string
}

// RestrictionService turns templates into enforceable restrictions and
// guards the one-active-restriction-per-subject rule.
type RestrictionService struct {
	db         *gorm.DB
	store      *CaseStore
	audit      *AuditLog
	templates  TemplateSource
	minDetails int
	now        func() time.Time
}

func NewRestrictionService(db *gorm.DB, store *CaseStore, audit *AuditLog, templates TemplateSource, minDetails int) *RestrictionService {
	if minDetails <= 0 {
		minDetails = DefaultMinDetailsLength
	}
	return &RestrictionService{
		db:         db,
		store:      store,
		audit:      audit,
		templates:  templates,
		minDetails: minDetails,
		now:        utcNow,
	}
}

// ListTemplates returns the catalog.
func (s *RestrictionService) ListTemplates() []models.Template {
	return s.templates.All()
}

// Materialize resolves in against its template into an unsaved, active restriction.
func (s *RestrictionService) Materialize(actor models.Actor, in RestrictionInput, now time.Time) (*models.Restriction, error) {
	if in.SubjectUserID == uuid.Nil {
		return nil, invalidField("subject_user_id", "is required")
	}
	tpl, ok := s.templates.Get(in.TemplateID)
	if !ok {
		return nil, invalidField("template_id", "unknown template")
	}

	details := strings.TrimSpace(in.Details)
	if utf8.RuneCountInString(details) < s.minDetails {
		return nil, invalidField("details", fmt.Sprintf("must be at least %d characters", s.minDetails))
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		if tpl.RequiresCustomReason {
			return nil, invalidField("reason", "custom template requires a reason")
		}
		reason = tpl.Name
	}

	hours := tpl.DefaultDurationHours
	if !tpl.ForcesDuration() && in.DurationHours != nil && *in.DurationHours != models.DurationUnset {
		hours = *in.DurationHours
	}
	if hours != models.DurationPermanent && hours <= 0 {
		return nil, invalidField("duration_hours", "must be positive or permanent")
	}

	scope := in.Scope
	if scope == "" {
		scope = tpl.DefaultScope
	}
	if !scope.Valid() {
		return nil, invalidField("scope", "must be full or partial")
	}

	r := &models.Restriction{
		ID:            uuid.New(),
		SubjectUserID: in.SubjectUserID,
		TemplateID:    tpl.ID,
		Reason:        reason,
		Details:       details,
		Scope:         scope,
		StartAt:       now,
		Active:        true,
		IssuedBy:      actor.ID,
		Version:       1,
	}
	if hours != models.DurationPermanent {
		end := now.Add(time.Duration(hours) * time.Hour)
		r.EndAt = &end
	}
	return r, nil
}

// CreateRestriction restricts a subject directly, outside any case.
func (s *RestrictionService) CreateRestriction(ctx context.Context, actor models.Actor, in RestrictionInput) (r *models.Restriction, err error) {
	ctx, span := startSpan(ctx, "RestrictionService.CreateRestriction",
		attribute.String("subject_user_id", in.SubjectUserID.String()), attribute.String("template_id", in.TemplateID))
	defer func() { endSpan(span, err) }()

	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}

	// A lost race on lapsing an expired row is retried; the next attempt
	// sees the winner's restriction and fails AlreadyRestricted.
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		now := s.now()
		restriction, err := s.Materialize(actor, in, now)
		if err != nil {
			return nil, err
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.activate(ctx, tx, actor, restriction, now)
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("restriction created", "restriction_id", restriction.ID, "subject_user_id", restriction.SubjectUserID, "actor_id", actor.ID)
		return restriction, nil
	}
	return nil, ErrVersionConflict
}

// ResolveOutcome describes how a case resolution with a restriction ends.
type ResolveOutcome struct {
	Restriction RestrictionInput
	// FeedbackNote is shown to an application's subject; ignored for reports
	// unless non-empty.
	FeedbackNote string
}

// ResolveWithRestriction materializes a restriction against the case subject
// and moves the case to its terminal status in one transaction. Reports and
// restriction requests end resolved, applications end rejected.
func (s *RestrictionService) ResolveWithRestriction(ctx context.Context, actor models.Actor, caseID uuid.UUID, outcome ResolveOutcome) (c *models.Case, r *models.Restriction, err error) {
	ctx, span := startSpan(ctx, "RestrictionService.ResolveWithRestriction",
		attribute.String("case_id", caseID.String()), attribute.String("actor_id", actor.ID.String()))
	defer func() { endSpan(span, err) }()

	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.store.Get(ctx, caseID)
		if err != nil {
			return nil, nil, err
		}
		in := outcome.Restriction
		in.SubjectUserID = current.SubjectUserID
		if current.RestrictionRequest != nil {
			in = mergeRequested(in, current.RestrictionRequest)
		}
		to := ResolvedStatuses(current.CaseType)[0]
		if current.CaseType == models.CaseTypeApplication {
			to = models.StatusRejected
		}
		if err := checkResolvable(actor, current, to); err != nil {
			return nil, nil, err
		}

		now := s.now()
		restriction, err := s.Materialize(actor, in, now)
		if err != nil {
			return nil, nil, err
		}
		restriction.SourceCaseID = &current.ID

		var resolved *models.Case
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.activate(ctx, tx, actor, restriction, now); err != nil {
				return err
			}
			updated, err := resolveCase(ctx, s.store.WithTx(tx), s.audit.WithTx(tx), actor, current, to, outcome.FeedbackNote, now)
			if err != nil {
				return err
			}
			resolved = updated
			return nil
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		slog.Info("case resolved with restriction", "case_id", caseID, "restriction_id", restriction.ID, "actor_id", actor.ID)
		return resolved, restriction, nil
	}
	return nil, nil, ErrVersionConflict
}

// mergeRequested fills blanks in the moderator's input from a restriction request.
func mergeRequested(in RestrictionInput, req *models.RestrictionRequest) RestrictionInput {
	if in.TemplateID == "" {
		in.TemplateID = req.TemplateID
	}
	if in.DurationHours == nil && req.DurationHours != models.DurationUnset {
		hours := req.DurationHours
		in.DurationHours = &hours
	}
	if in.Scope == "" {
		in.Scope = req.Scope
	}
	if in.Reason == "" {
		in.Reason = req.Reason
	}
	if in.Details == "" {
		in.Details = req.Details
	}
	return in
}

// activate inserts r as the subject's only active restriction. An existing
// active restriction that has run out is deactivated first; a live one
// rejects the insert. The partial unique index closes the race between the
// check and the insert.
func (s *RestrictionService) activate(ctx context.Context, tx *gorm.DB, actor models.Actor, r *models.Restriction, now time.Time) error {
	var existing models.Restriction
	err := tx.WithContext(ctx).
		Where("subject_user_id = ? AND active = ?", r.SubjectUserID, true).
		First(&existing).Error
	switch {
	case err == nil:
		if !existing.LapsedAt(now) {
			return &AlreadyRestrictedError{RestrictionID: existing.ID}
		}
		if err := s.lapse(ctx, tx, &existing, now); err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to check active restriction: %w", err)
	}

	r.CreatedAt = now
	r.UpdatedAt = now
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return &AlreadyRestrictedError{}
		}
		return fmt.Errorf("failed to create restriction: %w", err)
	}
	return s.audit.WithTx(tx).Record(ctx, restrictionEvent(models.AuditRestrictionCreated, actor.ID, r))
}

func (s *RestrictionService) lapse(ctx context.Context, tx *gorm.DB, r *models.Restriction, now time.Time) error {
	result := tx.WithContext(ctx).Model(&models.Restriction{}).
		Where("id = ? AND version = ?", r.ID, r.Version).
		Updates(map[string]interface{}{
			"active":     false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to lapse restriction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	r.Active = false
	r.Version++
	return s.audit.WithTx(tx).Record(ctx, restrictionEvent(models.AuditRestrictionLapsed, models.SystemActorID, r))
}

// Revoke deactivates an active restriction. Lifting a restriction needs a
// higher tier than issuing one.
func (s *RestrictionService) Revoke(ctx context.Context, actor models.Actor, restrictionID uuid.UUID) (r *models.Restriction, err error) {
	ctx, span := startSpan(ctx, "RestrictionService.Revoke",
		attribute.String("restriction_id", restrictionID.String()), attribute.String("actor_id", actor.ID.String()))
	defer func() { endSpan(span, err) }()

	if err := requireTier(actor, models.TierHeadModerator); err != nil {
		return nil, err
	}

	var out models.Restriction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		result := tx.Model(&models.Restriction{}).
			Where("id = ? AND active = ?", restrictionID, true).
			Updates(map[string]interface{}{
				"active":     false,
				"revoked_by": actor.ID,
				"revoked_at": now,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to revoke restriction: %w", result.Error)
		}

		err := tx.Where("id = ?", restrictionID).First(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load restriction: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrNotActive
		}
		return s.audit.WithTx(tx).Record(ctx, restrictionEvent(models.AuditRestrictionRevoked, actor.ID, &out))
	})
	if err != nil {
		return nil, err
	}
	slog.Info("restriction revoked", "restriction_id", restrictionID, "actor_id", actor.ID)
	return &out, nil
}

func (s *RestrictionService) Get(ctx context.Context, id uuid.UUID) (*models.Restriction, error) {
	var r models.Restriction
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load restriction: %w", err)
	}
	return &r, nil
}

// ActiveFor returns the restriction currently enforced on subject, or nil.
// A row still flagged active past its end does not count.
func (s *RestrictionService) ActiveFor(ctx context.Context, subject uuid.UUID) (*models.Restriction, error) {
	var r models.Restriction
	err := s.db.WithContext(ctx).
		Where("subject_user_id = ? AND active = ?", subject, true).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active restriction: %w", err)
	}
	if r.LapsedAt(s.now()) {
		return nil, nil
	}
	return &r, nil
}

// ListForSubject returns the subject's restriction history, newest first.
func (s *RestrictionService) ListForSubject(ctx context.Context, subject uuid.UUID) ([]models.Restriction, error) {
	var out []models.Restriction
	err := s.db.WithContext(ctx).
		Where("subject_user_id = ?", subject).
		Order("start_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list restrictions: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
