package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"safaisetu/database"
	"safaisetu/evidence"
	"safaisetu/lifecycle"
	"safaisetu/metrics"
	"safaisetu/middleware"
	"safaisetu/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// StatusRequest is the body of PUT /reports/:id/status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// transition reads the report, asks the lifecycle engine for target and
// persists an accepted change. upload, if any, is stored as the resolution
// proof only once the engine would accept the request, and is discarded
// again unless the persisted report refers to it. A lost compare-and-swap
// race is retried once against the re-read report.
func (h *Handlers) transition(ctx context.Context, id string, target models.Status, caller lifecycle.Caller, upload []byte) (lifecycle.Result, error) {
	var proof models.ImageRef
	recorded := false
	defer func() {
		if proof != "" && !recorded {
			h.discardImage(ctx, proof)
		}
	}()

	for attempt := 0; ; attempt++ {
		r, err := h.reports.GetReport(ctx, id)
		if err != nil {
			return lifecycle.Result{}, err
		}

		if len(upload) > 0 && proof == "" {
			dry, err := lifecycle.RequestTransition(r, target, caller, pendingUpload)
			if err != nil {
				metrics.TransitionsTotal.WithLabelValues(string(r.Status), string(target), lifecycle.Outcome(err)).Inc()
				return dry, err
			}
			if dry.Changed {
				if proof, err = evidence.Bind(ctx, h.images, evidence.SlotResolution, upload); err != nil {
					return dry, err
				}
			}
		}

		res, err := lifecycle.RequestTransition(r, target, caller, proof)
		metrics.TransitionsTotal.WithLabelValues(string(r.Status), string(target), lifecycle.Outcome(err)).Inc()
		if err != nil || !res.Changed {
			return res, err
		}

		if _, err = h.reports.PersistTransition(ctx, res.From, res.Report); err != nil {
			if errors.Is(err, database.ErrStaleReport) && attempt == 0 {
				log.Infof("Report %s changed concurrently, retrying transition to %q", id, target)
				continue
			}
			return res, err
		}

		recorded = res.Report.ResolutionImageRef == proof
		log.Infof("Report %s: %q -> %q by %q", id, res.From, res.Report.Status, caller.Subject)
		h.emit(models.Event{
			Type:     models.EventReportStatusChanged,
			ReportID: id,
			From:     res.From,
			To:       res.Report.Status,
			At:       h.now(),
		})
		return res, nil
	}
}

func respondTransition(c *gin.Context, res lifecycle.Result, err error) {
	if err != nil {
		respondError(c, "Transition rejected", err)
		return
	}
	message := fmt.Sprintf("Report is now %s", res.Report.Status)
	if !res.Changed {
		message = fmt.Sprintf("Report is already %s", res.Report.Status)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"changed": res.Changed,
		"data":    res.Report,
	})
}

// ResolveReport claims the resolution of a report with a proof image
func (h *Handlers) ResolveReport(c *gin.Context) {
	h.limitBody(c)
	upload, err := h.readUpload(c, "image", "imageFile")
	if err != nil {
		respondError(c, "Invalid upload", err)
		return
	}
	// Without an upload the engine reports the missing proof.
	res, err := h.transition(c.Request.Context(), c.Param("id"), models.StatusPendingVerification, middleware.CallerFrom(c), upload)
	respondTransition(c, res, err)
}

// VerifyReport confirms a claimed resolution. Requires an admin token.
func (h *Handlers) VerifyReport(c *gin.Context) {
	res, err := h.transition(c.Request.Context(), c.Param("id"), models.StatusResolved, middleware.CallerFrom(c), nil)
	respondTransition(c, res, err)
}

// UpdateStatus requests an arbitrary target status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		// Unknown targets are rejected by the engine.
		target = models.Status(req.Status)
	}
	res, err := h.transition(c.Request.Context(), c.Param("id"), target, middleware.CallerFrom(c), nil)
	respondTransition(c, res, err)
}
