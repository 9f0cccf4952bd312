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

// maxCASAttempts bounds internal re-read/retry loops after a lost compare-and-swap.
const maxCASAttempts = 3

// ClaimService grants and revokes exclusive in-review ownership of cases.
// A claim and its status change are one conditional write on the case row.
type ClaimService struct {
	db    *gorm.DB
	store *CaseStore
	audit *AuditLog
	lease time.Duration
	now   func() time.Time
}

// NewClaimService builds the claim manager. A zero lease disables claim
// expiry; Heartbeat still refreshes claimed_at.
func NewClaimService(db *gorm.DB, store *CaseStore, audit *AuditLog, lease time.Duration) *ClaimService {
	return &ClaimService{db: db, store: store, audit: audit, lease: lease, now: utcNow}
}

// Claim gives actor exclusive ownership of the case. Re-claiming a case the
// actor already holds returns it unchanged.
func (s *ClaimService) Claim(ctx context.Context, actor models.Actor, caseID uuid.UUID) (c *models.Case, err error) {
	ctx, span := startSpan(ctx, "ClaimService.Claim",
		attribute.String("case_id", caseID.String()), attribute.String("actor_id", actor.ID.String()))
	defer func() { endSpan(span, err) }()

	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}
	return s.claim(ctx, actor, caseID, nil)
}

// claim re-reads after a lost write. With pin set, every read must still be
// at the pinned version.
func (s *ClaimService) claim(ctx context.Context, actor models.Actor, caseID uuid.UUID, pin *int64) (*models.Case, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.store.Get(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if pin != nil && current.Version != *pin {
			return nil, ErrVersionConflict
		}
		if current.ClaimedBy != nil {
			if *current.ClaimedBy == actor.ID {
				return current, nil
			}
			return nil, &AlreadyClaimedError{By: *current.ClaimedBy}
		}
		target, err := claimTarget(current)
		if err != nil {
			return nil, err
		}

		claimed, err := s.applyClaim(ctx, actor, current, target)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("case claimed", "case_id", caseID, "actor_id", actor.ID, "status", claimed.Status)
		return claimed, nil
	}
	return nil, ErrVersionConflict
}

func (s *ClaimService) applyClaim(ctx context.Context, actor models.Actor, current *models.Case, target models.CaseStatus) (*models.Case, error) {
	var out *models.Case
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		updated, err := s.store.WithTx(tx).Update(ctx, current.ID, current.Version, func(c *models.Case) error {
			if c.ClaimedBy != nil {
				return &AlreadyClaimedError{By: *c.ClaimedBy}
			}
			c.Status = target
			c.ClaimedBy = &actor.ID
			c.ClaimedAt = &now
			return nil
		})
		if err != nil {
			return err
		}

		audit := s.audit.WithTx(tx)
		if err := audit.Record(ctx, caseEvent(models.AuditClaimed, actor.ID, updated)); err != nil {
			return err
		}
		if current.Status != target {
			if err := audit.Record(ctx, transitionEvent(actor.ID, updated, current.Status, target)); err != nil {
				return err
			}
		}
		out = updated
		return nil
	})
	return out, err
}

// Release drops actor's claim. Head moderators may release anyone's claim.
func (s *ClaimService) Release(ctx context.Context, actor models.Actor, caseID uuid.UUID) (c *models.Case, err error) {
	ctx, span := startSpan(ctx, "ClaimService.Release",
		attribute.String("case_id", caseID.String()), attribute.String("actor_id", actor.ID.String()))
	defer func() { endSpan(span, err) }()

	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}
	return s.release(ctx, actor, caseID, nil)
}

func (s *ClaimService) release(ctx context.Context, actor models.Actor, caseID uuid.UUID, pin *int64) (*models.Case, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.store.Get(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if pin != nil && current.Version != *pin {
			return nil, ErrVersionConflict
		}
		if IsTerminal(current.Status) {
			return nil, &AlreadyResolvedError{Status: current.Status}
		}
		if current.ClaimedBy == nil {
			return nil, ErrNotClaimedByActor
		}
		if !current.IsClaimedBy(actor.ID) && !actor.Can(models.TierHeadModerator) {
			return nil, ErrNotClaimedByActor
		}

		released, err := s.releaseClaim(ctx, actor.ID, current, nil)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("case released", "case_id", caseID, "actor_id", actor.ID)
		return released, nil
	}
	return nil, ErrVersionConflict
}

func (s *ClaimService) releaseClaim(ctx context.Context, actorID uuid.UUID, current *models.Case, details map[string]interface{}) (*models.Case, error) {
	holder := *current.ClaimedBy
	target := ReleasedStatus(current.CaseType)

	var out *models.Case
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.store.WithTx(tx).Update(ctx, current.ID, current.Version, func(c *models.Case) error {
			c.Status = target
			c.ClaimedBy = nil
			c.ClaimedAt = nil
			return nil
		})
		if err != nil {
			return err
		}

		if details == nil {
			details = map[string]interface{}{}
		}
		details["holder"] = holder.String()
		audit := s.audit.WithTx(tx)
		if err := audit.Record(ctx, withDetails(caseEvent(models.AuditReleased, actorID, updated), details)); err != nil {
			return err
		}
		if current.Status != target {
			if err := audit.Record(ctx, transitionEvent(actorID, updated, current.Status, target)); err != nil {
				return err
			}
		}
		out = updated
		return nil
	})
	return out, err
}

// Heartbeat refreshes the claim timestamp so the lease sweep keeps it.
func (s *ClaimService) Heartbeat(ctx context.Context, actor models.Actor, caseID uuid.UUID) (*models.Case, error) {
	if err := requireTier(actor, models.TierModerator); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.store.Get(ctx, caseID)
		if err != nil {
			return nil, err
		}
		if !current.IsClaimedBy(actor.ID) {
			return nil, ErrNotClaimedByActor
		}
		now := s.now()
		updated, err := s.store.Update(ctx, caseID, current.Version, func(c *models.Case) error {
			c.ClaimedAt = &now
			return nil
		})
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		return updated, err
	}
	return nil, ErrVersionConflict
}

// ReleaseExpired drops every claim older than the lease and returns how many
// were released. It is a no-op while the lease is disabled.
func (s *ClaimService) ReleaseExpired(ctx context.Context) (int, error) {
	if s.lease <= 0 {
		return 0, nil
	}
	claimed, err := s.store.claimed(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.lease)
	released := 0
	for i := range claimed {
		c := &claimed[i]
		if c.ClaimedAt == nil || c.ClaimedAt.After(cutoff) {
			continue
		}
		_, err := s.releaseClaim(ctx, models.SystemActorID, c, map[string]interface{}{"reason": "lease_expired"})
		if errors.Is(err, ErrVersionConflict) {
			// touched since we looked; the holder is active again
			continue
		}
		if err != nil {
			return released, err
		}
		released++
		slog.Info("stale claim released", "case_id", c.ID, "holder", c.ClaimedBy)
	}
	return released, nil
}

// StartLeaseSweeper periodically releases expired claims until done is closed.
func StartLeaseSweeper(claims *ClaimService, interval time.Duration, done chan struct{}) {
	if claims.lease <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := claims.ReleaseExpired(context.Background()); err != nil {
					slog.Error("claim lease sweep failed", "error", err)
				}
			case <-done:
				return
			}
		}
	}()
}
