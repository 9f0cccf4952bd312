package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditKind names the decision an audit entry records.
type AuditKind string

const (
	AuditCaseCreated        AuditKind = "case_created"
	AuditClaimed            AuditKind = "claimed"
	AuditReleased           AuditKind = "released"
	AuditTransitioned       AuditKind = "transitioned"
	AuditArchived           AuditKind = "archived"
	AuditRestrictionCreated AuditKind = "restriction_created"
	AuditRestrictionRevoked AuditKind = "restriction_revoked"
	AuditRestrictionLapsed  AuditKind = "restriction_lapsed"
)

// SystemActorID attributes entries written by background sweeps.
var SystemActorID = uuid.Nil

// AuditEvent is one append-only accountability record.
type AuditEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          AuditKind      `gorm:"size:40;not null;index" json:"kind"`
	ActorID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"actor_id"`
	CaseID        *uuid.UUID     `gorm:"type:uuid;index" json:"case_id,omitempty"`
	RestrictionID *uuid.UUID     `gorm:"type:uuid;index" json:"restriction_id,omitempty"`
	FromStatus    string         `gorm:"size:20" json:"from,omitempty"`
	ToStatus      string         `gorm:"size:20" json:"to,omitempty"`
	Details       datatypes.JSON `json:"details,omitempty"`
	OccurredAt    time.Time      `gorm:"not null;index" json:"occurred_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
