package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
)

type CreateReportRequest struct {
	SubjectUserID uuid.UUID `json:"subject_user_id"`
	Reason        string    `json:"reason"`
	Details       string    `json:"details"`
}

type CreateApplicationRequest struct {
	PositionID     string            `json:"position_id"`
	Responses      []models.Response `json:"responses"`
	TimeToComplete int               `json:"time_to_complete"`
	Draft          bool              `json:"draft"`
}

type TransitionRequest struct {
	Status          models.CaseStatus `json:"status"`
	Note            string            `json:"note"`
	ExpectedVersion *int64            `json:"expected_version,omitempty"`
}

type RestrictionInput struct {
	TemplateID    string                  `json:"template_id"`
	DurationHours *int                    `json:"duration_hours,omitempty"`
	Scope         models.RestrictionScope `json:"scope"`
	Reason        string                  `json:"reason"`
	Details       string                  `json:"details"`
}

type CreateRestrictionRequest struct {
	SubjectUserID uuid.UUID `json:"subject_user_id"`
	RestrictionInput
}

type ResolveWithRestrictionRequest struct {
	RestrictionInput
	FeedbackNote string `json:"feedback_note"`
}

type CreateRestrictionCaseRequest struct {
	SubjectUserID uuid.UUID               `json:"subject_user_id"`
	TemplateID    string                  `json:"template_id"`
	DurationHours int                     `json:"duration_hours"`
	Scope         models.RestrictionScope `json:"scope"`
	Reason        string                  `json:"reason"`
	Details       string                  `json:"details"`
}

type CaseListResponse struct {
	Cases  []models.Case `json:"cases"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type CaseDetailResponse struct {
	Case              *models.Case        `json:"case"`
	ActiveRestriction *models.Restriction `json:"active_restriction"`
	RestrictionCount  int                 `json:"restriction_count"`
	DuplicateCount    int64               `json:"duplicate_count"`
	Audit             []models.AuditEvent `json:"audit"`
}

type ResolveWithRestrictionResponse struct {
	Case        *models.Case        `json:"case"`
	Restriction *models.Restriction `json:"restriction"`
}

// ErrorResponse is the body of every non-2xx reply. Code is the stable
// machine-readable kind; the optional fields carry its structured data.
type ErrorResponse struct {
	Error     bool       `json:"error"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message"`
	ClaimedBy *uuid.UUID `json:"claimed_by,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	Field     string     `json:"field,omitempty"`
	Blocking  *uuid.UUID `json:"restriction_id,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

// FormatTime renders t for JSON bodies built by hand.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
