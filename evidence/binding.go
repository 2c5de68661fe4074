// Package evidence binds image assets to the two evidence slots of a report
// and resolves them for display.
package evidence

import (
	"context"
	"errors"
	"fmt"

	"safaisetu/models"
)

// Slot names one of the two images a report can carry.
type Slot string

const (
	// SlotEvidence holds the photo submitted with the report.
	SlotEvidence Slot = "evidence"
	// SlotResolution holds the proof-of-resolution photo.
	SlotResolution Slot = "resolution"
)

var Slots = []Slot{SlotEvidence, SlotResolution}

var (
	// ErrNotAvailable means the slot is legitimately empty, which is the
	// normal state of the resolution slot of a Pending report.
	ErrNotAvailable = errors.New("image not available")
	// ErrEvidenceUnavailable means the image should exist but could not be
	// retrieved. Retrying may succeed.
	ErrEvidenceUnavailable = errors.New("evidence unavailable")
	ErrUnknownSlot         = errors.New("unknown evidence slot")
	ErrEmptyImage          = errors.New("empty image")
)

// Handle identifies a stored image bound to a report slot.
type Handle struct {
	ReportID string          `json:"report_id"`
	Slot     Slot            `json:"slot"`
	Ref      models.ImageRef `json:"ref"`
}

// ImageFetcher reads image bytes by reference.
type ImageFetcher interface {
	FetchImage(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

// ImageStorer persists image bytes for a slot.
type ImageStorer interface {
	StoreImage(ctx context.Context, slot Slot, data []byte) (models.ImageRef, error)
}

// ImageDeleter drops an image no report refers to.
type ImageDeleter interface {
	DeleteImage(ctx context.Context, ref models.ImageRef) error
}

// ImageStore is the image storage service.
type ImageStore interface {
	ImageFetcher
	ImageStorer
	ImageDeleter
}

// Resolve returns the handle of the image bound to slot.
func Resolve(r models.Report, slot Slot) (Handle, error) {
	h := Handle{ReportID: r.ID, Slot: slot}
	switch slot {
	case SlotEvidence:
		// Every constructed report has one. An empty ref means broken storage.
		if r.EvidenceImageRef == "" {
			return h, fmt.Errorf("report %s has no evidence reference: %w", r.ID, ErrEvidenceUnavailable)
		}
		h.Ref = r.EvidenceImageRef
	case SlotResolution:
		if r.ResolutionImageRef == "" {
			return h, ErrNotAvailable
		}
		h.Ref = r.ResolutionImageRef
	default:
		return h, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return h, nil
}

// Bind stores data for slot and returns the reference to record on the report.
func Bind(ctx context.Context, store ImageStorer, slot Slot, data []byte) (models.ImageRef, error) {
	if slot != SlotEvidence && slot != SlotResolution {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	ref, err := store.StoreImage(ctx, slot, data)
	if err != nil {
		return "", fmt.Errorf("failed to store %s image: %w", slot, err)
	}
	return ref, nil
}
