package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/database"
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEngine struct {
	db           *gorm.DB
	store        *CaseStore
	audit        *AuditLog
	claims       *ClaimService
	workflow     *WorkflowService
	restrictions *RestrictionService
	intake       *IntakeService
	queries      *QueryService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEngine(t *testing.T, lease time.Duration) *testEngine {
	t.Helper()
	db := newTestDB(t)
	templates := catalog.Defaults()

	store := NewCaseStore(db)
	audit := NewAuditLog(db)
	claims := NewClaimService(db, store, audit, lease)
	restrictions := NewRestrictionService(db, store, audit, templates, DefaultMinDetailsLength)
	return &testEngine{
		db:           db,
		store:        store,
		audit:        audit,
		claims:       claims,
		workflow:     NewWorkflowService(db, store, audit, claims),
		restrictions: restrictions,
		intake:       NewIntakeService(db, store, audit, templates, DefaultMinDetailsLength),
		queries:      NewQueryService(store, audit, restrictions),
	}
}

func moderator() models.Actor {
	return models.Actor{ID: uuid.New(), Tier: models.TierModerator}
}

func headModerator() models.Actor {
	return models.Actor{ID: uuid.New(), Tier: models.TierHeadModerator}
}

func admin() models.Actor {
	return models.Actor{ID: uuid.New(), Tier: models.TierAdmin}
}

func (e *testEngine) submitReport(t *testing.T, subject uuid.UUID, reason string) *models.Case {
	t.Helper()
	c, err := e.intake.SubmitReport(context.Background(), ReportSubmission{
		SubjectUserID: subject,
		ReporterID:    uuid.New(),
		Reason:        reason,
		Details:       "link in bio leads to a fake giveaway",
	})
	require.NoError(t, err)
	return c
}

func (e *testEngine) submitApplication(t *testing.T) *models.Case {
	t.Helper()
	c, err := e.intake.SubmitApplication(context.Background(), ApplicationSubmission{
		ApplicantID: uuid.New(),
		PositionID:  "moderator",
		Responses: []models.Response{
			{QuestionID: "why", Answer: "I like helping", TimeToAnswerSeconds: 40},
			{QuestionID: "experience", Answer: "Two years on forums", TimeToAnswerSeconds: 65},
		},
		TimeToCompleteSeconds: 105,
	})
	require.NoError(t, err)
	return c
}

func (e *testEngine) countAudit(t *testing.T, caseID uuid.UUID, kind models.AuditKind) int {
	t.Helper()
	events, err := e.audit.List(context.Background(), AuditFilter{CaseID: &caseID, Kind: kind})
	require.NoError(t, err)
	return len(events)
}

func intPtr(v int) *int { return &v }

// fixedClock returns a controllable clock starting at start.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
