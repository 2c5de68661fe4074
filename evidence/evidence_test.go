package evidence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"safaisetu/models"
)

type memImages struct {
	mu     sync.Mutex
	data   map[models.ImageRef][]byte
	fail   map[models.ImageRef]bool
	fetchF func(ref models.ImageRef)
	seq    int
}

func newMemImages() *memImages {
	return &memImages{data: map[models.ImageRef][]byte{}, fail: map[models.ImageRef]bool{}}
}

func (m *memImages) StoreImage(_ context.Context, slot Slot, data []byte) (models.ImageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref := models.ImageRef(fmt.Sprintf("%s-%d", slot, m.seq))
	m.data[ref] = data
	return ref, nil
}

func (m *memImages) FetchImage(_ context.Context, ref models.ImageRef) ([]byte, error) {
	if m.fetchF != nil {
		m.fetchF(ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[ref] {
		return nil, errors.New("connection reset")
	}
	d, ok := m.data[ref]
	if !ok {
		return nil, errors.New("no such image")
	}
	return d, nil
}

// versions returns successive versions of a report on every call; the last
// one repeats.
type versions struct {
	mu    sync.Mutex
	list  []models.Report
	calls int
	err   error
}

func (v *versions) GetReport(_ context.Context, id string) (models.Report, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return models.Report{}, v.err
	}
	i := v.calls
	if i >= len(v.list) {
		i = len(v.list) - 1
	}
	v.calls++
	return v.list[i], nil
}

func report(status models.Status, evidence, resolution models.ImageRef) models.Report {
	return models.Report{ID: "R1", Heading: "h", Description: "d", Status: status,
		EvidenceImageRef: evidence, ResolutionImageRef: resolution}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name      string
		report    models.Report
		slot      Slot
		expectRef models.ImageRef
		expectErr error
	}{
		{"Evidence of pending", report(models.StatusPending, "e1", ""), SlotEvidence, "e1", nil},
		{"Resolution of pending", report(models.StatusPending, "e1", ""), SlotResolution, "", ErrNotAvailable},
		{"Resolution awaiting verification", report(models.StatusPendingVerification, "e1", "r1"), SlotResolution, "r1", nil},
		{"Resolution of resolved", report(models.StatusResolved, "e1", "r1"), SlotResolution, "r1", nil},
		{"Broken evidence reference", report(models.StatusPending, "", ""), SlotEvidence, "", ErrEvidenceUnavailable},
		{"Unknown slot", report(models.StatusPending, "e1", ""), Slot("thumbnail"), "", ErrUnknownSlot},
	}
	for _, testCase := range testCases {
		h, err := Resolve(testCase.report, testCase.slot)
		if testCase.expectErr != nil {
			if !errors.Is(err, testCase.expectErr) {
				t.Errorf("%s: expected error %v, got %v", testCase.name, testCase.expectErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", testCase.name, err)
			continue
		}
		if h.Ref != testCase.expectRef || h.Slot != testCase.slot || h.ReportID != "R1" {
			t.Errorf("%s: unexpected handle %+v", testCase.name, h)
		}
	}
}

func TestNotAvailableIsNotUnavailable(t *testing.T) {
	_, err := Resolve(report(models.StatusPending, "e1", ""), SlotResolution)
	if errors.Is(err, ErrEvidenceUnavailable) {
		t.Errorf("NotAvailable must be distinguishable from EvidenceUnavailable, got %v", err)
	}
}

func TestBind(t *testing.T) {
	store := newMemImages()
	ref, err := Bind(context.Background(), store, SlotResolution, []byte("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if string(store.data[ref]) != "jpeg" {
		t.Errorf("expected stored bytes under %q", ref)
	}
	if _, err := Bind(context.Background(), store, SlotResolution, nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
	if _, err := Bind(context.Background(), store, Slot("other"), []byte("x")); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	store := newMemImages()
	store.data["e1"] = []byte("evidence")
	store.fail["r1"] = true

	img := Load(context.Background(), store, report(models.StatusPendingVerification, "e1", "r1"), SlotEvidence)
	if !img.Available() || string(img.Data) != "evidence" {
		t.Errorf("evidence: expected bytes, got %+v", img)
	}
	img = Load(context.Background(), store, report(models.StatusPendingVerification, "e1", "r1"), SlotResolution)
	if !errors.Is(img.Err, ErrEvidenceUnavailable) || img.Available() {
		t.Errorf("resolution: expected ErrEvidenceUnavailable, got %v", img.Err)
	}
	img = Load(context.Background(), store, report(models.StatusPending, "e1", ""), SlotResolution)
	if !errors.Is(img.Err, ErrNotAvailable) {
		t.Errorf("pending resolution: expected ErrNotAvailable, got %v", img.Err)
	}
}

func TestFetchIndependentFailures(t *testing.T) {
	store := newMemImages()
	store.fail["e1"] = true
	store.data["r1"] = []byte("proof")
	src := &versions{list: []models.Report{report(models.StatusPendingVerification, "e1", "r1")}}

	b, err := NewFetcher(src, store).Fetch(context.Background(), "R1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !errors.Is(b.Evidence.Err, ErrEvidenceUnavailable) {
		t.Errorf("expected evidence ErrEvidenceUnavailable, got %v", b.Evidence.Err)
	}
	if !b.Resolution.Available() || string(b.Resolution.Data) != "proof" {
		t.Errorf("expected resolution bytes despite evidence failure, got %+v", b.Resolution)
	}
}

func TestFetchRunsSlotsConcurrently(t *testing.T) {
	store := newMemImages()
	store.data["e1"] = []byte("evidence")
	store.data["r1"] = []byte("proof")
	resolutionStarted := make(chan struct{})
	store.fetchF = func(ref models.ImageRef) {
		switch ref {
		case "r1":
			close(resolutionStarted)
		case "e1":
			select {
			case <-resolutionStarted:
			case <-time.After(2 * time.Second):
			}
		}
	}
	src := &versions{list: []models.Report{report(models.StatusPendingVerification, "e1", "r1")}}

	start := time.Now()
	b, err := NewFetcher(src, store).Fetch(context.Background(), "R1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("evidence fetch waited for the resolution fetch to finish; slots are not fetched in parallel")
	}
	if !b.Evidence.Available() || !b.Resolution.Available() {
		t.Errorf("expected both images, got %+v / %+v", b.Evidence, b.Resolution)
	}
}

func TestFetchRechecksLatestReport(t *testing.T) {
	store := newMemImages()
	store.data["e1"] = []byte("evidence")
	store.data["r1"] = []byte("proof")
	// The report gets its resolution claim while the first fetch is in flight.
	src := &versions{list: []models.Report{
		report(models.StatusPending, "e1", ""),
		report(models.StatusPendingVerification, "e1", "r1"),
	}}

	b, err := NewFetcher(src, store).Fetch(context.Background(), "R1")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if b.Report.Status != models.StatusPendingVerification {
		t.Errorf("expected latest report version, got status %q", b.Report.Status)
	}
	if !b.Resolution.Available() || b.Resolution.Handle.Ref != "r1" {
		t.Errorf("expected resolution image reloaded from latest reference, got %+v", b.Resolution)
	}
	if !b.Evidence.Available() {
		t.Errorf("expected evidence image, got %v", b.Evidence.Err)
	}
}

func TestFetchReportFailure(t *testing.T) {
	src := &versions{err: errors.New("report not found")}
	if _, err := NewFetcher(src, newMemImages()).Fetch(context.Background(), "R1"); err == nil {
		t.Errorf("expected error when the report cannot be loaded")
	}
}
