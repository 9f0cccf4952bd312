package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseType identifies the variant a moderation case carries.
type CaseType string

const (
	CaseTypeReport             CaseType = "report"
	CaseTypeApplication        CaseType = "application"
	CaseTypeRestrictionRequest CaseType = "restriction_request"
)

// Valid reports whether t is a known case type.
func (t CaseType) Valid() bool {
	switch t {
	case CaseTypeReport, CaseTypeApplication, CaseTypeRestrictionRequest:
		return true
	}
	return false
}

// CaseStatus is a lifecycle state of a case. The legal set depends on the case type.
type CaseStatus string

const (
	// Report and restriction request lifecycle.
	StatusOpen     CaseStatus = "open"
	StatusAssigned CaseStatus = "assigned"
	StatusResolved CaseStatus = "resolved"

	// Application lifecycle.
	StatusDraft     CaseStatus = "draft"
	StatusSubmitted CaseStatus = "submitted"
	StatusInReview  CaseStatus = "in_review"
	StatusApproved  CaseStatus = "approved"
	StatusRejected  CaseStatus = "rejected"
)

// Case is a unit of moderation work. Variant data lives in exactly one of
// Report, Application or RestrictionRequest, matching CaseType.
type Case struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CaseType      CaseType   `gorm:"size:30;not null;index" json:"case_type"`
	SubjectUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"subject_user_id"`
	Status        CaseStatus `gorm:"size:20;not null;index" json:"status"`
	ClaimedBy     *uuid.UUID `gorm:"type:uuid;index" json:"claimed_by"`
	ClaimedAt     *time.Time `json:"claimed_at"`
	Version       int64      `gorm:"not null" json:"version"`
	FeedbackNote  *string    `gorm:"type:text" json:"feedback_note"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ArchivedAt    *time.Time `gorm:"index" json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Report             *Report             `gorm:"foreignKey:CaseID" json:"report,omitempty"`
	Application        *Application        `gorm:"foreignKey:CaseID" json:"application,omitempty"`
	RestrictionRequest *RestrictionRequest `gorm:"foreignKey:CaseID" json:"restriction_request,omitempty"`
}

func (Case) TableName() string {
	return "cases"
}

// IsClaimedBy reports whether actorID currently holds the claim.
func (c *Case) IsClaimedBy(actorID uuid.UUID) bool {
	return c.ClaimedBy != nil && *c.ClaimedBy == actorID
}
