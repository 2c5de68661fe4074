package models

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusPending             Status = "Pending"
	StatusPendingVerification Status = "Pending Verification"
	StatusResolved            Status = "Resolved"
)

var ErrUnknownStatus = errors.New("unknown report status")

// Statuses lists all statuses in lifecycle order.
var Statuses = []Status{StatusPending, StatusPendingVerification, StatusResolved}

// ParseStatus accepts the canonical names plus the compact forms used by
// older clients ("PendingVerification", "pending_verification").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	switch norm {
	case "pending":
		return StatusPending, nil
	case "pendingverification":
		return StatusPendingVerification, nil
	case "resolved":
		return StatusResolved, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the position of s in lifecycle order, or -1 for unknown values.
func (s Status) Rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the successor of s. Resolved is terminal and unknown
// statuses have no successor.
func (s Status) Next() (Status, bool) {
	r := s.Rank()
	if r < 0 || r+1 >= len(Statuses) {
		return "", false
	}
	return Statuses[r+1], true
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusResolved
}

// HasResolutionProof reports whether a report in status s must carry a
// resolution image.
func (s Status) HasResolutionProof() bool {
	return s == StatusPendingVerification || s == StatusResolved
}

func (s Status) String() string {
	return string(s)
}
