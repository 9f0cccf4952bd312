package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimContestedReport(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	report := e.submitReport(t, uuid.New(), "spam")
	s1, s2 := moderator(), moderator()

	claimed, err := e.claims.Claim(ctx, s1, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, claimed.Status)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, s1.ID, *claimed.ClaimedBy)

	_, err = e.claims.Claim(ctx, s2, report.ID)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	var contested *AlreadyClaimedError
	require.ErrorAs(t, err, &contested)
	assert.Equal(t, s1.ID, contested.By)

	stored, err := e.store.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, *stored.ClaimedBy)
	assert.Equal(t, models.StatusAssigned, stored.Status)

	assert.Equal(t, 1, e.countAudit(t, report.ID, models.AuditClaimed))
}

func TestClaimIsIdempotentForHolder(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	report := e.submitReport(t, uuid.New(), "spam")
	s1 := moderator()

	first, err := e.claims.Claim(ctx, s1, report.ID)
	require.NoError(t, err)
	second, err := e.claims.Claim(ctx, s1, report.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 1, e.countAudit(t, report.ID, models.AuditClaimed))
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	e := newTestEngine(t, 0)
	report := e.submitReport(t, uuid.New(), "harassment")

	const contenders = 8
	actors := make([]models.Actor, contenders)
	errs := make([]error, contenders)
	for i := range actors {
		actors[i] = moderator()
	}

	var wg sync.WaitGroup
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.claims.Claim(context.Background(), actors[i], report.ID)
		}(i)
	}
	wg.Wait()

	var winner uuid.UUID
	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			winner = actors[i].ID
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
	}
	require.Equal(t, 1, wins)

	stored, err := e.store.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, winner, *stored.ClaimedBy)
	assert.Equal(t, 1, e.countAudit(t, report.ID, models.AuditClaimed))
}

func TestClaimRejections(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()

	t.Run("requires staff", func(t *testing.T) {
		report := e.submitReport(t, uuid.New(), "spam")
		_, err := e.claims.Claim(ctx, models.Actor{ID: uuid.New()}, report.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unknown case", func(t *testing.T) {
		_, err := e.claims.Claim(ctx, moderator(), uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("resolved case", func(t *testing.T) {
		report := e.submitReport(t, uuid.New(), "spam")
		s1 := moderator()
		_, err := e.claims.Claim(ctx, s1, report.ID)
		require.NoError(t, err)
		_, err = e.workflow.Transition(ctx, s1, report.ID, TransitionRequest{Status: models.StatusResolved})
		require.NoError(t, err)

		_, err = e.claims.Claim(ctx, moderator(), report.ID)
		assert.ErrorIs(t, err, ErrAlreadyResolved)
	})

	t.Run("draft application", func(t *testing.T) {
		draft, err := e.intake.SubmitApplication(ctx, ApplicationSubmission{
			ApplicantID: uuid.New(),
			PositionID:  "moderator",
			Draft:       true,
		})
		require.NoError(t, err)

		_, err = e.claims.Claim(ctx, moderator(), draft.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestClaimApplicationMovesToInReview(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	app := e.submitApplication(t)
	s1 := moderator()

	claimed, err := e.claims.Claim(ctx, s1, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, claimed.Status)
	assert.Equal(t, 1, e.countAudit(t, app.ID, models.AuditTransitioned))

	released, err := e.claims.Release(ctx, s1, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, released.Status)
	assert.Nil(t, released.ClaimedBy)

	// already in review, so a second claim changes no status
	_, err = e.claims.Claim(ctx, moderator(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.countAudit(t, app.ID, models.AuditTransitioned))
}

func TestRelease(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	s1, s2 := moderator(), moderator()

	t.Run("holder returns the case to the queue", func(t *testing.T) {
		report := e.submitReport(t, uuid.New(), "spam")
		_, err := e.claims.Claim(ctx, s1, report.ID)
		require.NoError(t, err)

		released, err := e.claims.Release(ctx, s1, report.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, released.Status)
		assert.Nil(t, released.ClaimedBy)
		assert.Nil(t, released.ClaimedAt)
		assert.Equal(t, 1, e.countAudit(t, report.ID, models.AuditReleased))

		_, err = e.claims.Claim(ctx, s2, report.ID)
		assert.NoError(t, err)
	})

	t.Run("other moderator cannot release", func(t *testing.T) {
		report := e.submitReport(t, uuid.New(), "spam")
		_, err := e.claims.Claim(ctx, s1, report.ID)
		require.NoError(t, err)

		_, err = e.claims.Release(ctx, s2, report.ID)
		assert.ErrorIs(t, err, ErrNotClaimedByActor)
	})

	t.Run("head moderator can release any claim", func(t *testing.T) {
		report := e.submitReport(t, uuid.New(), "spam")
		_, err := e.claims.Claim(ctx, s1, report.ID)
		require.NoError(t, err)

		released, err := e.claims.Release(ctx, headModerator(), report.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, released.Status)
	})

	t.Run("unclaimed case", func(t *testing.T) {
		report := e.submitReport(t, uuid.New(), "spam")
		_, err := e.claims.Release(ctx, s1, report.ID)
		assert.ErrorIs(t, err, ErrNotClaimedByActor)
	})
}

func TestReleaseExpiredClaims(t *testing.T) {
	e := newTestEngine(t, 10*time.Minute)
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	e.claims.now = clock.Now

	stale := e.submitReport(t, uuid.New(), "spam")
	fresh := e.submitReport(t, uuid.New(), "spam")
	s1, s2 := moderator(), moderator()

	_, err := e.claims.Claim(ctx, s1, stale.ID)
	require.NoError(t, err)
	_, err = e.claims.Claim(ctx, s2, fresh.ID)
	require.NoError(t, err)

	clock.Advance(8 * time.Minute)
	_, err = e.claims.Heartbeat(ctx, s2, fresh.ID)
	require.NoError(t, err)

	_, err = e.claims.Heartbeat(ctx, s1, fresh.ID)
	assert.ErrorIs(t, err, ErrNotClaimedByActor)

	clock.Advance(3 * time.Minute)
	released, err := e.claims.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	got, err := e.store.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)
	assert.Nil(t, got.ClaimedBy)

	got, err = e.store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClaimedBy(s2.ID))

	events, err := e.audit.List(ctx, AuditFilter{CaseID: &stale.ID, Kind: models.AuditReleased})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.SystemActorID, events[0].ActorID)
	assert.Contains(t, string(events[0].Details), "lease_expired")
}

func TestReleaseExpiredDisabledWithoutLease(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	report := e.submitReport(t, uuid.New(), "spam")
	_, err := e.claims.Claim(ctx, moderator(), report.ID)
	require.NoError(t, err)

	e.claims.now = func() time.Time { return time.Now().Add(72 * time.Hour) }
	released, err := e.claims.ReleaseExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestReleasedClaimLosesHeartbeat(t *testing.T) {
	e := newTestEngine(t, 0)
	ctx := context.Background()
	report := e.submitReport(t, uuid.New(), "spam")
	s1 := moderator()

	_, err := e.claims.Claim(ctx, s1, report.ID)
	require.NoError(t, err)
	_, err = e.claims.Release(ctx, s1, report.ID)
	require.NoError(t, err)

	_, err = e.claims.Heartbeat(ctx, s1, report.ID)
	assert.True(t, errors.Is(err, ErrNotClaimedByActor))
}
