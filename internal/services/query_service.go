package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
)

// CaseDetail is a case with the subject context staff need to decide it.
type CaseDetail struct {
	Case              *models.Case
	ActiveRestriction *models.Restriction
	RestrictionCount  int
	DuplicateCount    int64
	Audit             []models.AuditEvent
}

// QueryService serves the read side used by the staff dashboard.
type QueryService struct {
	store        *CaseStore
	audit        *AuditLog
	restrictions *RestrictionService
}

func NewQueryService(store *CaseStore, audit *AuditLog, restrictions *RestrictionService) *QueryService {
	return &QueryService{store: store, audit: audit, restrictions: restrictions}
}

func (s *QueryService) ListOpenCases(ctx context.Context, f CaseFilter) ([]models.Case, int64, error) {
	return s.store.ListOpen(ctx, f)
}

func (s *QueryService) GetCaseDetail(ctx context.Context, caseID uuid.UUID) (*CaseDetail, error) {
	c, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	detail := &CaseDetail{Case: c}

	if detail.ActiveRestriction, err = s.restrictions.ActiveFor(ctx, c.SubjectUserID); err != nil {
		return nil, err
	}
	history, err := s.restrictions.ListForSubject(ctx, c.SubjectUserID)
	if err != nil {
		return nil, err
	}
	detail.RestrictionCount = len(history)

	if c.CaseType == models.CaseTypeReport {
		if detail.DuplicateCount, err = s.store.countDuplicates(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	if detail.Audit, err = s.audit.List(ctx, AuditFilter{CaseID: &c.ID, Limit: 500}); err != nil {
		return nil, err
	}
	return detail, nil
}
