package lifecycle

import (
	"errors"
	"testing"
	"time"

	"safaisetu/models"
)

var admin = Caller{Subject: "admin@city", IsAdmin: true}

func newPending(t *testing.T) models.Report {
	lat, lon := 28.6139, 77.2090
	r, err := models.NewReport(models.NewReportArgs{
		ID:          "R1",
		Heading:     "Garbage near market",
		Description: "Overflowing bin",
		Address:     "Sadar Market",
		Latitude:    &lat,
		Longitude:   &lon,
		Evidence:    "evidence-1",
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed to build report: %v", err)
	}
	return r
}

func withStatus(r models.Report, s models.Status, proof models.ImageRef) models.Report {
	r.Status = s
	r.ResolutionImageRef = proof
	return r
}

func TestRequestTransition(t *testing.T) {
	base := newPending(t)
	testCases := []struct {
		name          string
		report        models.Report
		target        models.Status
		caller        Caller
		proof         models.ImageRef
		expectErr     error
		expectStatus  models.Status
		expectProof   models.ImageRef
		expectChanged bool
	}{
		{
			name:         "Claim without proof",
			report:       base,
			target:       models.StatusPendingVerification,
			caller:       Anonymous,
			expectErr:    ErrMissingEvidence,
			expectStatus: models.StatusPending,
		}, {
			name:          "Claim with proof",
			report:        base,
			target:        models.StatusPendingVerification,
			caller:        Anonymous,
			proof:         "proof-X",
			expectStatus:  models.StatusPendingVerification,
			expectProof:   "proof-X",
			expectChanged: true,
		}, {
			name:          "Admin claim with proof",
			report:        base,
			target:        models.StatusPendingVerification,
			caller:        admin,
			proof:         "proof-X",
			expectStatus:  models.StatusPendingVerification,
			expectProof:   "proof-X",
			expectChanged: true,
		}, {
			name:         "Skip to resolved",
			report:       base,
			target:       models.StatusResolved,
			caller:       admin,
			proof:        "proof-X",
			expectErr:    ErrInvalidTransition,
			expectStatus: models.StatusPending,
		}, {
			name:         "Verify as non-admin",
			report:       withStatus(base, models.StatusPendingVerification, "proof-X"),
			target:       models.StatusResolved,
			caller:       Anonymous,
			expectErr:    ErrUnauthorized,
			expectStatus: models.StatusPendingVerification,
			expectProof:  "proof-X",
		}, {
			name:          "Verify as admin",
			report:        withStatus(base, models.StatusPendingVerification, "proof-X"),
			target:        models.StatusResolved,
			caller:        admin,
			expectStatus:  models.StatusResolved,
			expectProof:   "proof-X",
			expectChanged: true,
		}, {
			name:          "Verify as admin ignores resubmitted proof",
			report:        withStatus(base, models.StatusPendingVerification, "proof-X"),
			target:        models.StatusResolved,
			caller:        admin,
			proof:         "proof-Y",
			expectStatus:  models.StatusResolved,
			expectProof:   "proof-X",
			expectChanged: true,
		}, {
			name:         "Verify report missing its proof",
			report:       withStatus(base, models.StatusPendingVerification, ""),
			target:       models.StatusResolved,
			caller:       admin,
			expectErr:    ErrMissingEvidence,
			expectStatus: models.StatusPendingVerification,
		}, {
			name:         "Regress from verification",
			report:       withStatus(base, models.StatusPendingVerification, "proof-X"),
			target:       models.StatusPending,
			caller:       admin,
			expectErr:    ErrInvalidTransition,
			expectStatus: models.StatusPendingVerification,
			expectProof:  "proof-X",
		}, {
			name:         "Regress from resolved",
			report:       withStatus(base, models.StatusResolved, "proof-X"),
			target:       models.StatusPendingVerification,
			caller:       admin,
			proof:        "proof-Z",
			expectErr:    ErrInvalidTransition,
			expectStatus: models.StatusResolved,
			expectProof:  "proof-X",
		}, {
			name:         "Resolved to pending",
			report:       withStatus(base, models.StatusResolved, "proof-X"),
			target:       models.StatusPending,
			caller:       admin,
			expectErr:    ErrInvalidTransition,
			expectStatus: models.StatusResolved,
			expectProof:  "proof-X",
		}, {
			name:         "Unknown target",
			report:       base,
			target:       models.Status("Archived"),
			caller:       admin,
			expectErr:    ErrInvalidTransition,
			expectStatus: models.StatusPending,
		}, {
			name:         "Unknown current status",
			report:       withStatus(base, models.Status("active"), ""),
			target:       models.StatusPendingVerification,
			caller:       admin,
			proof:        "proof-X",
			expectErr:    ErrInvalidTransition,
			expectStatus: models.Status("active"),
		}, {
			name:         "Idempotent pending",
			report:       base,
			target:       models.StatusPending,
			caller:       Anonymous,
			expectStatus: models.StatusPending,
		}, {
			name:         "Idempotent claim retry without proof",
			report:       withStatus(base, models.StatusPendingVerification, "proof-X"),
			target:       models.StatusPendingVerification,
			caller:       Anonymous,
			expectStatus: models.StatusPendingVerification,
			expectProof:  "proof-X",
		}, {
			name:         "Idempotent verify retry by non-admin",
			report:       withStatus(base, models.StatusResolved, "proof-X"),
			target:       models.StatusResolved,
			caller:       Anonymous,
			expectStatus: models.StatusResolved,
			expectProof:  "proof-X",
		},
	}

	for _, testCase := range testCases {
		res, err := RequestTransition(testCase.report, testCase.target, testCase.caller, testCase.proof)
		if testCase.expectErr != nil {
			if !errors.Is(err, testCase.expectErr) {
				t.Errorf("%s: expected error %v, got %v", testCase.name, testCase.expectErr, err)
			}
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Errorf("%s: expected *TransitionError, got %T", testCase.name, err)
			} else if te.From != testCase.report.Status || te.To != testCase.target {
				t.Errorf("%s: expected %q -> %q in error, got %q -> %q", testCase.name, testCase.report.Status, testCase.target, te.From, te.To)
			}
		} else if err != nil {
			t.Errorf("%s: unexpected error %v", testCase.name, err)
		}
		if res.Report.Status != testCase.expectStatus {
			t.Errorf("%s: expected status %q, got %q", testCase.name, testCase.expectStatus, res.Report.Status)
		}
		if res.Report.ResolutionImageRef != testCase.expectProof {
			t.Errorf("%s: expected resolution image %q, got %q", testCase.name, testCase.expectProof, res.Report.ResolutionImageRef)
		}
		if res.Changed != testCase.expectChanged {
			t.Errorf("%s: expected changed %v, got %v", testCase.name, testCase.expectChanged, res.Changed)
		}
		if res.From != testCase.report.Status {
			t.Errorf("%s: expected from %q, got %q", testCase.name, testCase.report.Status, res.From)
		}
	}
}

func TestRequestTransitionDoesNotMutateInput(t *testing.T) {
	r := newPending(t)
	if _, err := RequestTransition(r, models.StatusPendingVerification, Anonymous, "proof-X"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Status != models.StatusPending || r.ResolutionImageRef != "" {
		t.Errorf("input report was modified: %+v", r)
	}
}

// Walks the full lifecycle of a single report, including the rejected steps.
func TestLifecycleScenario(t *testing.T) {
	r := newPending(t)

	res, err := RequestTransition(r, models.StatusPendingVerification, Anonymous, "")
	if !errors.Is(err, ErrMissingEvidence) {
		t.Fatalf("claim without proof: expected ErrMissingEvidence, got %v", err)
	}
	if res.Report.Status != models.StatusPending {
		t.Fatalf("claim without proof: expected status unchanged, got %q", res.Report.Status)
	}

	res, err = RequestTransition(res.Report, models.StatusPendingVerification, Anonymous, "X")
	if err != nil {
		t.Fatalf("claim with proof: unexpected error %v", err)
	}
	if res.Report.Status != models.StatusPendingVerification || res.Report.ResolutionImageRef != "X" {
		t.Fatalf("claim with proof: got status %q, resolution %q", res.Report.Status, res.Report.ResolutionImageRef)
	}
	r = res.Report

	res, err = RequestTransition(r, models.StatusResolved, Caller{Subject: "citizen"}, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("verify as citizen: expected ErrUnauthorized, got %v", err)
	}

	res, err = RequestTransition(res.Report, models.StatusResolved, admin, "")
	if err != nil {
		t.Fatalf("verify as admin: unexpected error %v", err)
	}
	if res.Report.Status != models.StatusResolved || res.Report.ResolutionImageRef != "X" {
		t.Fatalf("verify as admin: got status %q, resolution %q", res.Report.Status, res.Report.ResolutionImageRef)
	}
}

func TestOutcome(t *testing.T) {
	testCases := map[string]error{
		"ok":                 nil,
		"invalid_transition": &TransitionError{Err: ErrInvalidTransition},
		"unauthorized":       &TransitionError{Err: ErrUnauthorized},
		"missing_evidence":   &TransitionError{Err: ErrMissingEvidence},
		"error":              errors.New("boom"),
	}
	for expected, err := range testCases {
		if got := Outcome(err); got != expected {
			t.Errorf("Outcome(%v): expected %q, got %q", err, expected, got)
		}
	}
}
