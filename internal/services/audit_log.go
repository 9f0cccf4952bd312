package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is the append-only record of claims, transitions and restriction
// decisions. It exposes no update or delete.
type AuditLog struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{db: db, now: utcNow}
}

func (a *AuditLog) WithTx(tx *gorm.DB) *AuditLog {
	return &AuditLog{db: tx, now: a.now}
}

// Record appends event, filling in its id and timestamp when unset.
func (a *AuditLog) Record(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.now()
	}
	if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// AuditFilter narrows List. Zero values match everything.
type AuditFilter struct {
	CaseID        *uuid.UUID
	RestrictionID *uuid.UUID
	ActorID       *uuid.UUID
	Kind          models.AuditKind
	Limit         int
	Offset        int
}

// List returns entries oldest first.
func (a *AuditLog) List(ctx context.Context, f AuditFilter) ([]models.AuditEvent, error) {
	query := a.db.WithContext(ctx).Model(&models.AuditEvent{})
	if f.CaseID != nil {
		query = query.Where("case_id = ?", *f.CaseID)
	}
	if f.RestrictionID != nil {
		query = query.Where("restriction_id = ?", *f.RestrictionID)
	}
	if f.ActorID != nil {
		query = query.Where("actor_id = ?", *f.ActorID)
	}
	if f.Kind != "" {
		query = query.Where("kind = ?", f.Kind)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []models.AuditEvent
	if err := query.Order("occurred_at ASC").Limit(limit).Offset(f.Offset).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return events, nil
}

func caseEvent(kind models.AuditKind, actorID uuid.UUID, c *models.Case) *models.AuditEvent {
	id := c.ID
	return &models.AuditEvent{Kind: kind, ActorID: actorID, CaseID: &id}
}

func transitionEvent(actorID uuid.UUID, c *models.Case, from, to models.CaseStatus) *models.AuditEvent {
	e := caseEvent(models.AuditTransitioned, actorID, c)
	e.FromStatus = string(from)
	e.ToStatus = string(to)
	return e
}

func restrictionEvent(kind models.AuditKind, actorID uuid.UUID, r *models.Restriction) *models.AuditEvent {
	id := r.ID
	return &models.AuditEvent{Kind: kind, ActorID: actorID, RestrictionID: &id, CaseID: r.SourceCaseID}
}

// withDetails attaches a JSON object to the event; marshal failures drop the details.
func withDetails(e *models.AuditEvent, details map[string]interface{}) *models.AuditEvent {
	if b, err := json.Marshal(details); err == nil {
		e.Details = datatypes.JSON(b)
	}
	return e
}
