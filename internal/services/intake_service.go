package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IntakeService creates cases from external events: user reports,
// applications and staff restriction requests.
type IntakeService struct {
	db         *gorm.DB
	store      *CaseStore
	audit      *AuditLog
	templates  TemplateSource
	minDetails int
	now        func() time.Time
}

func NewIntakeService(db *gorm.DB, store *CaseStore, audit *AuditLog, templates TemplateSource, minDetails int) *IntakeService {
	if minDetails <= 0 {
		minDetails = DefaultMinDetailsLength
	}
	return &IntakeService{db: db, store: store, audit: audit, templates: templates, minDetails: minDetails, now: utcNow}
}

type ReportSubmission struct {
	SubjectUserID uuid.UUID
	ReporterID    uuid.UUID
	Reason        string
	Details       string
}

// SubmitReport files a report. If a live report for the same subject and
// reason exists, the new one is grouped under it as a duplicate. A reporter
// repeating a complaint already on file gets the existing case back.
func (s *IntakeService) SubmitReport(ctx context.Context, in ReportSubmission) (*models.Case, error) {
	reason := strings.TrimSpace(in.Reason)
	switch {
	case in.SubjectUserID == uuid.Nil:
		return nil, invalidField("subject_user_id", "is required")
	case in.ReporterID == uuid.Nil:
		return nil, invalidField("reporter_id", "is required")
	case in.SubjectUserID == in.ReporterID:
		return nil, invalidField("subject_user_id", "cannot report yourself")
	case reason == "":
		return nil, invalidField("reason", "is required")
	case utf8.RuneCountInString(reason) > 500:
		return nil, invalidField("reason", "must be under 500 characters")
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var out *models.Case
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			store := s.store.WithTx(tx)
			primaryID, found, err := store.findPrimaryReport(ctx, in.SubjectUserID, reason)
			if err != nil {
				return err
			}

			report := &models.Report{
				Reason:     reason,
				Details:    strings.TrimSpace(in.Details),
				ReporterID: in.ReporterID,
			}
			if found {
				primary, err := store.Get(ctx, primaryID)
				if err != nil {
					return err
				}
				if primary.Report.HasReporter(in.ReporterID) {
					out = primary
					return nil
				}
				if _, err := store.Update(ctx, primary.ID, primary.Version, func(c *models.Case) error {
					c.Report.OtherReporterIDs = append(c.Report.OtherReporterIDs, in.ReporterID)
					return nil
				}); err != nil {
					return err
				}
				report.DuplicateOf = &primary.ID
			} else {
				key := reportGroupKey(in.SubjectUserID, reason)
				report.GroupKey = &key
			}

			created, err := store.Create(ctx, &models.Case{
				CaseType:      models.CaseTypeReport,
				SubjectUserID: in.SubjectUserID,
				Report:        report,
			})
			if isUniqueViolation(err) {
				// another primary for this group committed first
				return ErrVersionConflict
			}
			if err != nil {
				return err
			}
			out = created
			return s.audit.WithTx(tx).Record(ctx, caseEvent(models.AuditCaseCreated, in.ReporterID, created))
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("report submitted", "case_id", out.ID, "subject_user_id", in.SubjectUserID)
		return out, nil
	}
	return nil, ErrVersionConflict
}

type ApplicationSubmission struct {
	ApplicantID           uuid.UUID
	PositionID            string
	Responses             []models.Response
	TimeToCompleteSeconds int
	// Draft keeps the application with the applicant until SubmitDraft.
	Draft bool
}

// SubmitApplication records a staff application. The applicant is the case subject.
func (s *IntakeService) SubmitApplication(ctx context.Context, in ApplicationSubmission) (*models.Case, error) {
	if in.ApplicantID == uuid.Nil {
		return nil, invalidField("applicant_id", "is required")
	}
	if strings.TrimSpace(in.PositionID) == "" {
		return nil, invalidField("position_id", "is required")
	}
	if in.TimeToCompleteSeconds < 0 {
		return nil, invalidField("time_to_complete", "must not be negative")
	}
	if !in.Draft {
		if err := validateResponses(in.Responses); err != nil {
			return nil, err
		}
	}

	app := &models.Application{
		PositionID:            strings.TrimSpace(in.PositionID),
		Responses:             datatypes.JSONSlice[models.Response](in.Responses),
		TimeToCompleteSeconds: in.TimeToCompleteSeconds,
	}
	status := models.StatusSubmitted
	if in.Draft {
		status = models.StatusDraft
	} else {
		now := s.now()
		app.SubmittedAt = &now
	}

	var out *models.Case
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.store.WithTx(tx).Create(ctx, &models.Case{
			CaseType:      models.CaseTypeApplication,
			SubjectUserID: in.ApplicantID,
			Status:        status,
			Application:   app,
		})
		if err != nil {
			return err
		}
		out = created
		return s.audit.WithTx(tx).Record(ctx, caseEvent(models.AuditCaseCreated, in.ApplicantID, created))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitDraft moves the applicant's own draft to submitted.
func (s *IntakeService) SubmitDraft(ctx context.Context, applicantID, caseID uuid.UUID) (*models.Case, error) {
	current, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if current.CaseType != models.CaseTypeApplication || current.SubjectUserID != applicantID {
		return nil, ErrNotFound
	}
	if err := CheckTransition(current.CaseType, current.Status, models.StatusSubmitted); err != nil {
		return nil, err
	}
	if err := validateResponses(current.Application.Responses); err != nil {
		return nil, err
	}

	var out *models.Case
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		updated, err := s.store.WithTx(tx).Update(ctx, caseID, current.Version, func(c *models.Case) error {
			c.Status = models.StatusSubmitted
			return nil
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Application{}).Where("case_id = ?", caseID).Update("submitted_at", now).Error; err != nil {
			return err
		}
		updated.Application.SubmittedAt = &now
		out = updated
		return s.audit.WithTx(tx).Record(ctx, transitionEvent(applicantID, updated, models.StatusDraft, models.StatusSubmitted))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateResponses(responses []models.Response) error {
	if len(responses) == 0 {
		return invalidField("responses", "at least one response is required")
	}
	for _, r := range responses {
		if strings.TrimSpace(r.QuestionID) == "" {
			return invalidField("responses", "question_id is required")
		}
		if r.TimeToAnswerSeconds < 0 {
			return invalidField("responses", "time_to_answer must not be negative")
		}
	}
	return nil
}

type RestrictionRequestSubmission struct {
	SubjectUserID uuid.UUID
	TemplateID    string
	DurationHours int
	Scope         models.RestrictionScope
	Reason        string
	Details       string
}

// CreateRestrictionRequest opens a staff-initiated restriction case.
func (s *IntakeService) CreateRestrictionRequest(ctx context.Context, actor models.Actor, in RestrictionRequestSubmission) (*models.Case, error) {
	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}
	if in.SubjectUserID == uuid.Nil {
		return nil, invalidField("subject_user_id", "is required")
	}
	tpl, ok := s.templates.Get(in.TemplateID)
	if !ok {
		return nil, invalidField("template_id", "unknown template")
	}
	if tpl.RequiresCustomReason && strings.TrimSpace(in.Reason) == "" {
		return nil, invalidField("reason", "custom template requires a reason")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Details)) < s.minDetails {
		return nil, invalidField("details", "too short")
	}
	if in.Scope != "" && !in.Scope.Valid() {
		return nil, invalidField("scope", "must be full or partial")
	}

	var out *models.Case
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.store.WithTx(tx).Create(ctx, &models.Case{
			CaseType:      models.CaseTypeRestrictionRequest,
			SubjectUserID: in.SubjectUserID,
			RestrictionRequest: &models.RestrictionRequest{
				TemplateID:    tpl.ID,
				DurationHours: in.DurationHours,
				Scope:         in.Scope,
				Reason:        strings.TrimSpace(in.Reason),
				Details:       strings.TrimSpace(in.Details),
				RequestedBy:   actor.ID,
			},
		})
		if err != nil {
			return err
		}
		out = created
		return s.audit.WithTx(tx).Record(ctx, caseEvent(models.AuditCaseCreated, actor.ID, created))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
