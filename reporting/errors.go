/*
errors.go - Centralized error types for the report engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure raised by the state machine, bunker ledger or review
  workflow is one of these, so callers can map them with errors.Is.

ERROR CATEGORIES:
  1. NotFound          - vessel/report/voyage/bunker record absent
  2. InvalidInput      - missing or malformed submission fields
  3. InvalidState      - continuation submitted with no approved baseline
  4. InvalidTransition - report type or passage state not a legal successor
  5. Conflict          - a pending report blocks the vessel, or a review of a
                         report that is no longer pending
  6. DataIntegrity     - stored data contradicts itself (a bug, not user error)

RETRIES:
  Nothing in the engine retries. Clients fix the input and resubmit.

SEE ALSO:
  - submit.go, review.go: Raise these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package reporting

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")

	// ErrDataIntegrity means stored records disagree with each other, e.g. an
	// approved baseline report without its bunker record.
	ErrDataIntegrity = errors.New("data integrity error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "vessel", "report", "voyage", "bunker record"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError describes one invalid submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// TransitionError describes an illegal successor. Baseline is "" when the
// vessel has no approved report, which makes this an InvalidState error.
type TransitionError struct {
	Baseline       ReportType
	BaselineState  PassageState
	Requested      ReportType
	RequestedState PassageState
}

func (e *TransitionError) Error() string {
	if e.Baseline == "" {
		return fmt.Sprintf("cannot submit %s report: vessel has no approved report to continue from", e.Requested)
	}
	from := string(e.Baseline)
	if e.BaselineState != "" {
		from = fmt.Sprintf("%s(%s)", e.Baseline, e.BaselineState)
	}
	to := string(e.Requested)
	if e.RequestedState != "" {
		to = fmt.Sprintf("%s(%s)", e.Requested, e.RequestedState)
	}
	return fmt.Sprintf("cannot submit %s report after approved %s report", to, from)
}

func (e *TransitionError) Unwrap() error {
	if e.Baseline == "" {
		return ErrInvalidState
	}
	return ErrInvalidTransition
}

// PendingReportError is the admission-gate failure: a report is still
// awaiting review.
type PendingReportError struct {
	ReportID     ReportID
	Type         ReportType
	VoyageNumber string
}

func (e *PendingReportError) Error() string {
	if e.VoyageNumber != "" {
		return fmt.Sprintf("%s report #%d on voyage %s is still pending approval", e.Type, e.ReportID, e.VoyageNumber)
	}
	return fmt.Sprintf("%s report #%d is still pending approval", e.Type, e.ReportID)
}

func (e *PendingReportError) Unwrap() error { return ErrConflict }

// NotPendingError is returned when reviewing a report that was already reviewed.
type NotPendingError struct {
	ReportID ReportID
	Status   ReportStatus
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("report #%d is not pending (status: %s)", e.ReportID, e.Status)
}

func (e *NotPendingError) Unwrap() error { return ErrConflict }

// IntegrityError describes contradictory stored data.
type IntegrityError struct {
	VesselID VesselID
	ReportID ReportID
	Detail   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity: vessel %d report %d: %s", e.VesselID, e.ReportID, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return ErrDataIntegrity }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the request rather
// than by the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
