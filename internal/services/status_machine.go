package services

import (
	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
)

// Legal edges per case type. Restriction requests share the report lifecycle.
var transitions = map[models.CaseType]map[models.CaseStatus][]models.CaseStatus{
	models.CaseTypeReport: {
		models.StatusOpen:     {models.StatusAssigned},
		models.StatusAssigned: {models.StatusOpen, models.StatusResolved},
	},
	models.CaseTypeRestrictionRequest: {
		models.StatusOpen:     {models.StatusAssigned},
		models.StatusAssigned: {models.StatusOpen, models.StatusResolved},
	},
	models.CaseTypeApplication: {
		models.StatusDraft:     {models.StatusSubmitted},
		models.StatusSubmitted: {models.StatusInReview, models.StatusApproved, models.StatusRejected},
		models.StatusInReview:  {models.StatusApproved, models.StatusRejected},
	},
}

var terminalStatuses = map[models.CaseStatus]bool{
	models.StatusResolved: true,
	models.StatusApproved: true,
	models.StatusRejected: true,
}

// IsTerminal reports whether no further transition is permitted from s.
func IsTerminal(s models.CaseStatus) bool {
	return terminalStatuses[s]
}

// InitialStatus is the status a freshly created case starts in.
func InitialStatus(t models.CaseType) models.CaseStatus {
	if t == models.CaseTypeApplication {
		return models.StatusSubmitted
	}
	return models.StatusOpen
}

// CheckTransition validates the edge from -> to for the case type.
// Terminal sources fail with AlreadyResolvedError, everything else that is
// not listed fails with InvalidTransitionError.
func CheckTransition(t models.CaseType, from, to models.CaseStatus) error {
	if IsTerminal(from) {
		return &AlreadyResolvedError{Status: from}
	}
	for _, next := range transitions[t][from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// ClaimedStatus is the status a case holds while claimed.
func ClaimedStatus(t models.CaseType) models.CaseStatus {
	if t == models.CaseTypeApplication {
		return models.StatusInReview
	}
	return models.StatusAssigned
}

// ReleasedStatus is the status a case returns to when its claim is dropped.
func ReleasedStatus(t models.CaseType) models.CaseStatus {
	if t == models.CaseTypeApplication {
		return models.StatusInReview
	}
	return models.StatusOpen
}

// claimTarget returns the status a claim moves the case into, or why it cannot be claimed.
// Applications may be claimed while submitted or already seen (in_review).
func claimTarget(c *models.Case) (models.CaseStatus, error) {
	target := ClaimedStatus(c.CaseType)
	if c.CaseType == models.CaseTypeApplication && c.Status == models.StatusInReview {
		return target, nil
	}
	if err := CheckTransition(c.CaseType, c.Status, target); err != nil {
		return "", err
	}
	return target, nil
}

// ResolvedStatuses lists the terminal statuses reachable for a case type.
func ResolvedStatuses(t models.CaseType) []models.CaseStatus {
	if t == models.CaseTypeApplication {
		return []models.CaseStatus{models.StatusApproved, models.StatusRejected}
	}
	return []models.CaseStatus{models.StatusResolved}
}

// OpenStatuses lists the non-terminal statuses of a case type.
func OpenStatuses(t models.CaseType) []models.CaseStatus {
	var out []models.CaseStatus
	for s := range transitions[t] {
		out = append(out, s)
	}
	return out
}
