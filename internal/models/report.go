package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Report is the variant data of a user-submitted report case.
// Reports against the same subject and reason are grouped under the first
// (primary) report: later ones point at it via DuplicateOf and the primary
// accumulates their reporters in OtherReporterIDs. A primary holds GroupKey
// while it is unresolved, so the unique index admits one live primary per group.
type Report struct {
	CaseID           uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"-"`
	Reason           string                        `gorm:"not null;size:500;index" json:"reason"`
	Details          string                        `gorm:"type:text" json:"details"`
	ReporterID       uuid.UUID                     `gorm:"type:uuid;not null;index" json:"reporter_id"`
	DuplicateOf      *uuid.UUID                    `gorm:"type:uuid;index" json:"duplicate_of"`
	OtherReporterIDs datatypes.JSONSlice[uuid.UUID] `json:"other_reporter_ids"`
	GroupKey         *string                       `gorm:"size:600;uniqueIndex:idx_reports_live_primary" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}

// HasReporter reports whether id already filed this complaint.
func (r *Report) HasReporter(id uuid.UUID) bool {
	if r.ReporterID == id {
		return true
	}
	for _, other := range r.OtherReporterIDs {
		if other == id {
			return true
		}
	}
	return false
}
