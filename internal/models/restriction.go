package models

import (
	"time"

	"github.com/google/uuid"
)

// RestrictionScope limits how much of the platform a restriction covers.
type RestrictionScope string

const (
	ScopeFull    RestrictionScope = "full"
	ScopePartial RestrictionScope = "partial"
)

func (s RestrictionScope) Valid() bool {
	return s == ScopeFull || s == ScopePartial
}

// Restriction is an access limitation applied to a subject account.
// Rows are never deleted; revoking flips Active to false. The partial unique
// index keeps at most one active row per subject.
type Restriction struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectUserID uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_restrictions_one_active,where:active = true" json:"subject_user_id"`
	TemplateID    string           `gorm:"size:50;not null" json:"template_id"`
	Reason        string           `gorm:"size:500;not null" json:"reason"`
	Details       string           `gorm:"type:text;not null" json:"details"`
	Scope         RestrictionScope `gorm:"size:20;not null" json:"scope"`
	StartAt       time.Time        `gorm:"not null" json:"start_at"`
	EndAt         *time.Time       `json:"end_at"`
	Active        bool             `gorm:"not null;index" json:"active"`
	IssuedBy      uuid.UUID        `gorm:"type:uuid;not null" json:"issued_by"`
	RevokedBy     *uuid.UUID       `gorm:"type:uuid" json:"revoked_by"`
	RevokedAt     *time.Time       `json:"revoked_at"`
	SourceCaseID  *uuid.UUID       `gorm:"type:uuid;index" json:"source_case_id,omitempty"`
	Version       int64            `gorm:"not null" json:"version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (Restriction) TableName() string {
	return "restrictions"
}

// Permanent reports whether the restriction has no end.
func (r *Restriction) Permanent() bool {
	return r.EndAt == nil
}

// LapsedAt reports whether a time-bounded restriction has run out at now.
func (r *Restriction) LapsedAt(now time.Time) bool {
	return r.EndAt != nil && !now.Before(*r.EndAt)
}
