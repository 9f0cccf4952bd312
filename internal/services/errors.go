package services

import (
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/models"
	"github.com/google/uuid"
)

// Error kinds returned by the engine. Callers match them with errors.Is and
// pull structured data out with errors.As on the typed errors below.
var (
	ErrNotFound          = errors.New("not found")
	ErrVersionConflict   = errors.New("version conflict")
	ErrAlreadyClaimed    = errors.New("case already claimed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotClaimedByActor = errors.New("case not claimed by actor")
	ErrAlreadyRestricted = errors.New("subject already restricted")
	ErrAlreadyResolved   = errors.New("case already resolved")
	ErrValidationFailed  = errors.New("validation failed")
	ErrNotActive         = errors.New("restriction not active")
	ErrPermissionDenied  = errors.New("permission denied")
)

// AlreadyClaimedError carries the holder of a contested claim.
type AlreadyClaimedError struct {
	By uuid.UUID
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("case already claimed by %s", e.By)
}

func (e *AlreadyClaimedError) Unwrap() error { return ErrAlreadyClaimed }

// InvalidTransitionError names the rejected edge.
type InvalidTransitionError struct {
	From models.CaseStatus
	To   models.CaseStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// AlreadyResolvedError reports the terminal status a case is stuck in.
type AlreadyResolvedError struct {
	Status models.CaseStatus
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("case already resolved with status %q", e.Status)
}

func (e *AlreadyResolvedError) Unwrap() error { return ErrAlreadyResolved }

// AlreadyRestrictedError points at the restriction blocking a new one.
type AlreadyRestrictedError struct {
	RestrictionID uuid.UUID
}

func (e *AlreadyRestrictedError) Error() string {
	if e.RestrictionID == uuid.Nil {
		return ErrAlreadyRestricted.Error()
	}
	return fmt.Sprintf("subject already restricted by %s", e.RestrictionID)
}

func (e *AlreadyRestrictedError) Unwrap() error { return ErrAlreadyRestricted }

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// PermissionError names the tier the call required.
type PermissionError struct {
	Required models.Tier
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: requires %s", e.Required)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func requireTier(actor models.Actor, tier models.Tier) error {
	if !actor.Can(tier) {
		return &PermissionError{Required: tier}
	}
	return nil
}

var engineKinds = []error{
	ErrNotFound, ErrVersionConflict, ErrAlreadyClaimed, ErrInvalidTransition, ErrNotClaimedByActor,
	ErrAlreadyRestricted, ErrAlreadyResolved, ErrValidationFailed, ErrNotActive, ErrPermissionDenied,
}

// isEngineError reports whether err is one of the named, caller-recoverable kinds.
func isEngineError(err error) bool {
	for _, kind := range engineKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
