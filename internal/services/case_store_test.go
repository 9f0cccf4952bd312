package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseStoreCreateAndGet(t *testing.T) {
	store := NewCaseStore(newTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, &models.Case{
		CaseType:      models.CaseTypeReport,
		SubjectUserID: uuid.New(),
		Report:        &models.Report{Reason: "spam", ReporterID: uuid.New()},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, models.StatusOpen, created.Status)
	assert.Equal(t, int64(1), created.Version)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Report)
	assert.Equal(t, "spam", got.Report.Reason)
	assert.Nil(t, got.Application)

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Create(ctx, &models.Case{CaseType: "appeal", SubjectUserID: uuid.New()})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCaseStoreUpdateIsCompareAndSwap(t *testing.T) {
	store := NewCaseStore(newTestDB(t))
	ctx := context.Background()
	created, err := store.Create(ctx, &models.Case{
		CaseType:      models.CaseTypeRestrictionRequest,
		SubjectUserID: uuid.New(),
		RestrictionRequest: &models.RestrictionRequest{
			TemplateID:  "spam",
			RequestedBy: uuid.New(),
		},
	})
	require.NoError(t, err)

	holder := uuid.New()
	updated, err := store.Update(ctx, created.ID, 1, func(c *models.Case) error {
		c.Status = models.StatusAssigned
		c.ClaimedBy = &holder
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = store.Update(ctx, created.ID, 1, func(c *models.Case) error {
		c.Status = models.StatusOpen
		return nil
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	abort := errors.New("abort")
	_, err = store.Update(ctx, created.ID, 2, func(c *models.Case) error { return abort })
	assert.ErrorIs(t, err, abort)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Equal(t, holder, *got.ClaimedBy)
}

func TestListOpenFilters(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	s1 := moderator()

	claimed := e.submitReport(t, uuid.New(), "spam")
	_, err := e.claims.Claim(ctx, s1, claimed.ID)
	require.NoError(t, err)
	e.submitReport(t, uuid.New(), "spam")
	e.submitApplication(t)

	closed := e.submitReport(t, uuid.New(), "spam")
	_, err = e.claims.Claim(ctx, s1, closed.ID)
	require.NoError(t, err)
	_, err = e.workflow.Transition(ctx, s1, closed.ID, TransitionRequest{Status: models.StatusResolved})
	require.NoError(t, err)

	_, total, err := e.store.ListOpen(ctx, CaseFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	reports, total, err := e.store.ListOpen(ctx, CaseFilter{CaseType: models.CaseTypeReport})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, c := range reports {
		assert.NotNil(t, c.Report)
	}

	mine, total, err := e.store.ListOpen(ctx, CaseFilter{ClaimedBy: &s1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, claimed.ID, mine[0].ID)

	page, total, err := e.store.ListOpen(ctx, CaseFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)
}

func TestGetCaseDetail(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	subject := uuid.New()
	s1 := moderator()
	report := e.submitReport(t, subject, "harassment")

	_, err := e.claims.Claim(ctx, s1, report.ID)
	require.NoError(t, err)
	_, restriction, err := e.restrictions.ResolveWithRestriction(ctx, s1, report.ID, ResolveOutcome{
		Restriction: RestrictionInput{TemplateID: "harassment", Details: validDetails},
	})
	require.NoError(t, err)

	detail, err := e.queries.GetCaseDetail(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, detail.Case.Status)
	require.NotNil(t, detail.ActiveRestriction)
	assert.Equal(t, restriction.ID, detail.ActiveRestriction.ID)
	assert.Equal(t, 1, detail.RestrictionCount)

	kinds := map[models.AuditKind]int{}
	for _, ev := range detail.Audit {
		kinds[ev.Kind]++
	}
	assert.Equal(t, 1, kinds[models.AuditCaseCreated])
	assert.Equal(t, 1, kinds[models.AuditClaimed])
	assert.Equal(t, 2, kinds[models.AuditTransitioned])
	assert.Equal(t, 1, kinds[models.AuditRestrictionCreated])

	_, err = e.queries.GetCaseDetail(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
