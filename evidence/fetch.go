package evidence

import (
	"context"
	"errors"
	"fmt"

	"safaisetu/models"

	"golang.org/x/sync/errgroup"
)

// ReportSource returns the latest stored version of a report.
type ReportSource interface {
	GetReport(ctx context.Context, id string) (models.Report, error)
}

// Image is the result of loading one slot. Err is nil, ErrNotAvailable, or
// wraps ErrEvidenceUnavailable.
type Image struct {
	Handle Handle
	Data   []byte
	Err    error
}

// Available reports whether image bytes were loaded.
func (i Image) Available() bool {
	return i.Err == nil && len(i.Data) > 0
}

// Load resolves slot on r and fetches its bytes.
func Load(ctx context.Context, images ImageFetcher, r models.Report, slot Slot) Image {
	h, err := Resolve(r, slot)
	if err != nil {
		return Image{Handle: h, Err: err}
	}
	data, err := images.FetchImage(ctx, h.Ref)
	if err != nil {
		return Image{Handle: h, Err: fmt.Errorf("%s image %s: %v: %w", slot, h.Ref, err, ErrEvidenceUnavailable)}
	}
	if len(data) == 0 {
		return Image{Handle: h, Err: fmt.Errorf("%s image %s is empty: %w", slot, h.Ref, ErrEvidenceUnavailable)}
	}
	return Image{Handle: h, Data: data}
}

// Bundle is a report together with both of its slot images.
type Bundle struct {
	Report     models.Report
	Evidence   Image
	Resolution Image
}

// Fetcher loads both slots of a report concurrently.
type Fetcher struct {
	Reports ReportSource
	Images  ImageFetcher
}

func NewFetcher(reports ReportSource, images ImageFetcher) *Fetcher {
	return &Fetcher{Reports: reports, Images: images}
}

// Fetch loads the report and both slot images. The slots are fetched in
// parallel and fail independently; only a failure to load the report itself
// is returned as an error. Once the images arrive the report is read again
// and any slot whose reference changed meanwhile is reloaded against the
// latest version.
func (f *Fetcher) Fetch(ctx context.Context, id string) (Bundle, error) {
	r, err := f.Reports.GetReport(ctx, id)
	if err != nil {
		return Bundle{}, err
	}

	images := f.loadAll(ctx, r, Slots)

	latest, err := f.Reports.GetReport(ctx, id)
	if err == nil {
		var stale []Slot
		for _, slot := range Slots {
			if !sameBinding(images[slot], latest, slot) {
				stale = append(stale, slot)
			}
		}
		if len(stale) > 0 {
			for slot, img := range f.loadAll(ctx, latest, stale) {
				images[slot] = img
			}
		}
		r = latest
	}

	return Bundle{
		Report:     r,
		Evidence:   images[SlotEvidence],
		Resolution: images[SlotResolution],
	}, nil
}

func (f *Fetcher) loadAll(ctx context.Context, r models.Report, slots []Slot) map[Slot]Image {
	results := make([]Image, len(slots))
	// The goroutines never return an error so one slot cannot cancel the other.
	var g errgroup.Group
	for i, slot := range slots {
		g.Go(func() error {
			results[i] = Load(ctx, f.Images, r, slot)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[Slot]Image, len(slots))
	for i, slot := range slots {
		out[slot] = results[i]
	}
	return out
}

func sameBinding(img Image, latest models.Report, slot Slot) bool {
	h, err := Resolve(latest, slot)
	if errors.Is(err, ErrNotAvailable) {
		return errors.Is(img.Err, ErrNotAvailable)
	}
	return h.Ref == img.Handle.Ref
}
