package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseStore is the durable record of cases. Every mutation is a
// compare-and-swap on Version; a lost race surfaces as ErrVersionConflict.
// CaseStore never opens a transaction itself: compose writes with WithTx.
type CaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewCaseStore(db *gorm.DB) *CaseStore {
	return &CaseStore{db: db, now: utcNow}
}

// WithTx returns a store bound to tx.
func (s *CaseStore) WithTx(tx *gorm.DB) *CaseStore {
	return &CaseStore{db: tx, now: s.now}
}

func (s *CaseStore) Get(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	var c models.Case
	err := s.db.WithContext(ctx).
		Preload("Report").
		Preload("Application").
		Preload("RestrictionRequest").
		Where("id = ? AND archived_at IS NULL", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return &c, nil
}

// Create persists c with its variant detail at version 1.
func (s *CaseStore) Create(ctx context.Context, c *models.Case) (*models.Case, error) {
	if !c.CaseType.Valid() {
		return nil, invalidField("case_type", "unknown case type")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = InitialStatus(c.CaseType)
	}
	now := s.now()
	c.Version = 1
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Report != nil {
		c.Report.CaseID = c.ID
	}
	if c.Application != nil {
		c.Application.CaseID = c.ID
	}
	if c.RestrictionRequest != nil {
		c.RestrictionRequest.CaseID = c.ID
	}

	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	return c, nil
}

// Update loads the case, applies mutate to it and writes it back only if the
// stored version still equals expectedVersion. The returned case carries the
// bumped version. mutate may return an error to abort without writing.
func (s *CaseStore) Update(ctx context.Context, id uuid.UUID, expectedVersion int64, mutate func(*models.Case) error) (*models.Case, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	if err := mutate(c); err != nil {
		return nil, err
	}

	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.Case{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":        c.Status,
			"claimed_by":    nullableUUID(c.ClaimedBy),
			"claimed_at":    nullableTime(c.ClaimedAt),
			"feedback_note": nullableString(c.FeedbackNote),
			"resolved_at":   nullableTime(c.ResolvedAt),
			"archived_at":   nullableTime(c.ArchivedAt),
			"version":       gorm.Expr("version + 1"),
			"updated_at":    now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update case: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}
	c.Version = expectedVersion + 1
	c.UpdatedAt = now

	if c.Report != nil {
		if IsTerminal(c.Status) {
			c.Report.GroupKey = nil
		}
		if err := s.db.WithContext(ctx).Model(&models.Report{}).
			Where("case_id = ?", id).
			Updates(map[string]interface{}{
				"other_reporter_ids": c.Report.OtherReporterIDs,
				"group_key":          nullableString(c.Report.GroupKey),
			}).Error; err != nil {
			return nil, fmt.Errorf("failed to update report: %w", err)
		}
	}
	return c, nil
}

// CaseFilter narrows ListOpen.
type CaseFilter struct {
	CaseType          models.CaseType
	Status            models.CaseStatus
	SubjectUserID     *uuid.UUID
	ClaimedBy         *uuid.UUID
	IncludeDuplicates bool
	Limit             int
	Offset            int
}

// ListOpen returns non-terminal, non-archived cases newest first with the total match count.
// Application drafts are the applicant's and never listed.
func (s *CaseStore) ListOpen(ctx context.Context, f CaseFilter) ([]models.Case, int64, error) {
	var cases []models.Case
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Case{}).
		Where("cases.archived_at IS NULL").
		Where("cases.status NOT IN ?", []models.CaseStatus{
			models.StatusResolved, models.StatusApproved, models.StatusRejected, models.StatusDraft,
		})
	if f.CaseType != "" {
		query = query.Where("cases.case_type = ?", f.CaseType)
	}
	if f.Status != "" {
		query = query.Where("cases.status = ?", f.Status)
	}
	if f.SubjectUserID != nil {
		query = query.Where("cases.subject_user_id = ?", *f.SubjectUserID)
	}
	if f.ClaimedBy != nil {
		query = query.Where("cases.claimed_by = ?", *f.ClaimedBy)
	}
	if !f.IncludeDuplicates {
		query = query.Where("NOT EXISTS (SELECT 1 FROM reports WHERE reports.case_id = cases.id AND reports.duplicate_of IS NOT NULL)")
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	err := query.
		Preload("Report").
		Preload("Application").
		Preload("RestrictionRequest").
		Order("cases.created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&cases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, total, nil
}

// claimed returns every live case that currently has a claim holder.
func (s *CaseStore) claimed(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case
	err := s.db.WithContext(ctx).
		Where("claimed_by IS NOT NULL AND archived_at IS NULL").
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed cases: %w", err)
	}
	return cases, nil
}

// openDuplicatesOf returns the unclaimed open reports grouped under primaryID.
func (s *CaseStore) openDuplicatesOf(ctx context.Context, primaryID uuid.UUID) ([]models.Case, error) {
	var cases []models.Case
	err := s.db.WithContext(ctx).
		Preload("Report").
		Joins("JOIN reports ON reports.case_id = cases.id").
		Where("reports.duplicate_of = ? AND cases.status = ? AND cases.claimed_by IS NULL", primaryID, models.StatusOpen).
		Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicates: %w", err)
	}
	return cases, nil
}

// countDuplicates counts every report grouped under primaryID.
func (s *CaseStore) countDuplicates(ctx context.Context, primaryID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Report{}).Where("duplicate_of = ?", primaryID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count duplicates: %w", err)
	}
	return n, nil
}

// findPrimaryReport returns the id of the live primary report for subject and reason.
func (s *CaseStore) findPrimaryReport(ctx context.Context, subject uuid.UUID, reason string) (uuid.UUID, bool, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("group_key = ?", reportGroupKey(subject, reason)).
		Limit(1).
		Pluck("case_id", &ids).Error
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up primary report: %w", err)
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}

func reportGroupKey(subject uuid.UUID, reason string) string {
	return subject.String() + ":" + reason
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
