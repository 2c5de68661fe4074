package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"safaisetu/evidence"
	"safaisetu/metrics"
	"safaisetu/models"
	"safaisetu/query"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// pendingUpload stands in for an image reference during validation, before
// the upload is stored.
const pendingUpload models.ImageRef = "pending-upload"

func statusFilter(s string) query.StatusFilter {
	if st, err := models.ParseStatus(s); err == nil {
		return query.StatusFilter(st)
	}
	return query.StatusFilter(s)
}

// filtered loads the collection and applies the search and status query
// parameters.
func (h *Handlers) filtered(c *gin.Context) ([]models.Report, error) {
	reports, err := h.reports.ListReports(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return query.Filter(reports, c.Query("search"), statusFilter(c.Query("status"))), nil
}

// ListReports returns the filtered report list
func (h *Handlers) ListReports(c *gin.Context) {
	reports, err := h.filtered(c)
	if err != nil {
		respondError(c, "Failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reports,
		"count":   len(reports),
	})
}

// GetMetrics returns the dashboard status counts
func (h *Handlers) GetMetrics(c *gin.Context) {
	reports, err := h.filtered(c)
	if err != nil {
		respondError(c, "Failed to count reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    query.Count(reports),
	})
}

// GetReport returns a single report
func (h *Handlers) GetReport(c *gin.Context) {
	r, err := h.reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    r,
	})
}

// CreateReport handles a public submission
func (h *Handlers) CreateReport(c *gin.Context) {
	ctx := c.Request.Context()
	h.limitBody(c)

	image, err := h.readUpload(c, "imageFile", "image")
	if err != nil {
		respondError(c, "Invalid upload", err)
		return
	}
	sub, err := readSubmission(c)
	if err != nil {
		respondError(c, "Invalid report", err)
		return
	}

	args := models.NewReportArgs{
		ID:          h.reports.NewID(),
		Heading:     sub.Heading,
		Description: sub.Description,
		Address:     sub.Address,
		Latitude:    sub.Latitude.value,
		Longitude:   sub.Longitude.value,
		CreatedAt:   h.now(),
	}
	if len(image) > 0 {
		args.Evidence = pendingUpload
	}
	// Validate before anything is stored.
	if _, err := models.NewReport(args); err != nil {
		respondError(c, "Invalid report", err)
		return
	}

	ref, err := evidence.Bind(ctx, h.images, evidence.SlotEvidence, image)
	if err != nil {
		respondError(c, "Failed to store evidence image", err)
		return
	}
	args.Evidence = ref
	r, err := models.NewReport(args)
	if err != nil {
		h.discardImage(ctx, ref)
		respondError(c, "Invalid report", err)
		return
	}
	r, err = h.reports.CreateReport(ctx, r)
	if err != nil {
		h.discardImage(ctx, ref)
		respondError(c, "Failed to create report", err)
		return
	}

	metrics.ReportsCreatedTotal.Inc()
	log.Infof("Created report %s", r.ID)
	h.emit(models.Event{
		Type:     models.EventReportCreated,
		ReportID: r.ID,
		To:       r.Status,
		At:       h.now(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Report submitted successfully",
		"data":    r,
	})
}

// slotView is one evidence slot of the details response
type slotView struct {
	Available      bool   `json:"available"`
	Image          string `json:"image,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	PlaceholderURL string `json:"placeholder_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

func fetchOutcome(img evidence.Image) string {
	switch {
	case img.Err == nil:
		return "ok"
	case errors.Is(img.Err, evidence.ErrNotAvailable):
		return "not_available"
	}
	return "unavailable"
}

func (h *Handlers) newSlotView(img evidence.Image) slotView {
	metrics.EvidenceFetchTotal.WithLabelValues(string(img.Handle.Slot), fetchOutcome(img)).Inc()
	switch {
	case img.Available():
		return slotView{
			Available:   true,
			Image:       base64.StdEncoding.EncodeToString(img.Data),
			ContentType: http.DetectContentType(img.Data),
		}
	case errors.Is(img.Err, evidence.ErrNotAvailable):
		return slotView{}
	}
	log.Warnf("Image %s of report %s unavailable: %v", img.Handle.Slot, img.Handle.ReportID, img.Err)
	return slotView{
		PlaceholderURL: h.config.PlaceholderImageURL,
		Error:          img.Err.Error(),
	}
}

func (h *Handlers) fetchContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.config.ImageFetchTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.config.ImageFetchTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// GetReportDetails returns a report with both of its images. A failing image
// never fails the response.
func (h *Handlers) GetReportDetails(c *gin.Context) {
	ctx, cancel := h.fetchContext(c)
	defer cancel()

	b, err := h.fetcher.Fetch(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"report":     b.Report,
			"evidence":   h.newSlotView(b.Evidence),
			"resolution": h.newSlotView(b.Resolution),
		},
	})
}

func (h *Handlers) serveImage(c *gin.Context, slot evidence.Slot) {
	ctx, cancel := h.fetchContext(c)
	defer cancel()

	r, err := h.reports.GetReport(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get report", err)
		return
	}
	img := evidence.Load(ctx, h.images, r, slot)
	metrics.EvidenceFetchTotal.WithLabelValues(string(slot), fetchOutcome(img)).Inc()
	if img.Err != nil {
		if !errors.Is(img.Err, evidence.ErrNotAvailable) {
			log.Warnf("Image %s of report %s unavailable: %v", slot, r.ID, img.Err)
		}
		respondError(c, "Image not available", img.Err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(img.Data), img.Data)
}

// GetImage returns the evidence image bytes
func (h *Handlers) GetImage(c *gin.Context) {
	h.serveImage(c, evidence.SlotEvidence)
}

// GetResolvedImage returns the resolution image bytes
func (h *Handlers) GetResolvedImage(c *gin.Context) {
	h.serveImage(c, evidence.SlotResolution)
}
