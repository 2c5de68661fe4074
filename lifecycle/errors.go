package lifecycle

import (
	"errors"
	"fmt"

	"safaisetu/models"
)

var (
	// ErrInvalidTransition is returned when the target status is not the
	// successor of the current one.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnauthorized is returned when the caller lacks the role the
	// transition requires.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingEvidence is returned when the transition requires a proof
	// image that was not supplied.
	ErrMissingEvidence = errors.New("missing evidence")
)

// TransitionError describes a rejected transition request.
type TransitionError struct {
	ReportID string
	From     models.Status
	To       models.Status
	Err      error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("report %s: %q -> %q: %v", e.ReportID, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Outcome names the result of a transition request for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrMissingEvidence):
		return "missing_evidence"
	}
	return "error"
}
