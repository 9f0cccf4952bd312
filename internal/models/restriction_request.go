package models

import "github.com/google/uuid"

// RestrictionRequest is the variant data of a staff-initiated restriction case.
// Resolving the case with a restriction uses these values as the resolver input.
type RestrictionRequest struct {
	CaseID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"-"`
	TemplateID    string           `gorm:"size:50;not null" json:"template_id"`
	DurationHours int              `json:"duration_hours"`
	Scope         RestrictionScope `gorm:"size:20" json:"scope"`
	Reason        string           `gorm:"size:500" json:"reason"`
	Details       string           `gorm:"type:text" json:"details"`
	RequestedBy   uuid.UUID        `gorm:"type:uuid;not null;index" json:"requested_by"`
}

func (RestrictionRequest) TableName() string {
	return "restriction_requests"
}
