// Package lifecycle validates and applies report status transitions.
//
// The engine is a pure function of the current report, the requested
// status, the caller and an optional proof image. It never performs I/O;
// persisting the returned report is up to the caller.
package lifecycle

import (
	"safaisetu/models"
)

// Caller is the identity presented with a transition request. IsAdmin must
// come from a server-verified claim, never from a client-controlled flag.
type Caller struct {
	Subject string
	IsAdmin bool
}

// Anonymous is a caller without any privileges.
var Anonymous = Caller{}

// Result is the outcome of an accepted transition request.
type Result struct {
	Report  models.Report
	From    models.Status
	Changed bool
}

// RequestTransition moves r to target if the lifecycle allows it.
//
//	Pending             -> PendingVerification  any caller, proof required
//	PendingVerification -> Resolved             admin only
//
// Requesting the status a report already has is a no-op success so retried
// client requests are harmless.
func RequestTransition(r models.Report, target models.Status, caller Caller, proof models.ImageRef) (Result, error) {
	from := r.Status
	reject := func(err error) (Result, error) {
		return Result{Report: r, From: from}, &TransitionError{ReportID: r.ID, From: from, To: target, Err: err}
	}

	if !from.Valid() || !target.Valid() {
		return reject(ErrInvalidTransition)
	}
	if from == target {
		return Result{Report: r, From: from}, nil
	}
	next, ok := from.Next()
	if !ok || next != target {
		return reject(ErrInvalidTransition)
	}

	updated := r.Clone()
	switch target {
	case models.StatusPendingVerification:
		if proof == "" {
			return reject(ErrMissingEvidence)
		}
		updated.ResolutionImageRef = proof
	case models.StatusResolved:
		if !caller.IsAdmin {
			return reject(ErrUnauthorized)
		}
		// The proof on file is what gets verified; a resubmitted one is ignored.
		if !r.HasResolutionProof() {
			return reject(ErrMissingEvidence)
		}
	}
	updated.Status = target

	return Result{Report: updated, From: from, Changed: true}, nil
}
