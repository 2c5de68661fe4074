package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"safaisetu/config"
	"safaisetu/database"
	"safaisetu/evidence"
	"safaisetu/lifecycle"
	"safaisetu/metrics"
	"safaisetu/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// ReportStore is the report storage service
type ReportStore interface {
	NewID() string
	CreateReport(ctx context.Context, r models.Report) (models.Report, error)
	ListReports(ctx context.Context) ([]models.Report, error)
	GetReport(ctx context.Context, id string) (models.Report, error)
	PersistTransition(ctx context.Context, from models.Status, r models.Report) (models.Report, error)
	Ping(ctx context.Context) error
}

// EventPublisher hands lifecycle events to the message broker
type EventPublisher interface {
	PublishEvent(ev models.Event) error
	IsConnected() bool
}

// Broadcaster pushes lifecycle events to live map clients
type Broadcaster interface {
	BroadcastEvent(ev models.Event)
	GetStats() (int, int)
}

const healthPingTimeout = 2 * time.Second

// Handlers holds all HTTP handlers
type Handlers struct {
	reports   ReportStore
	images    evidence.ImageStore
	fetcher   *evidence.Fetcher
	config    *config.Config
	publisher EventPublisher
	hub       Broadcaster
	now       func() time.Time
}

// NewHandlers creates a new handlers instance. publisher and hub may be nil.
func NewHandlers(reports ReportStore, images evidence.ImageStore, cfg *config.Config, publisher EventPublisher, hub Broadcaster) *Handlers {
	return &Handlers{
		reports:   reports,
		images:    images,
		fetcher:   evidence.NewFetcher(reports, images),
		config:    cfg,
		publisher: publisher,
		hub:       hub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var (
	errImageTooLarge = errors.New("image exceeds the size limit")
	errBadQuery      = errors.New("invalid query")
)

// statusCode maps domain errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrMissingEvidence):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidReport), errors.Is(err, errBadQuery):
		return http.StatusBadRequest
	case errors.Is(err, errImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, evidence.ErrNotAvailable):
		return http.StatusNotFound
	case errors.Is(err, evidence.ErrEvidenceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, database.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrStaleReport):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, message string, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("%s: %v", message, err)
	}
	c.JSON(code, gin.H{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}

// emit publishes ev to the broker and to websocket clients. Failures are
// logged and never fail the request.
func (h *Handlers) emit(ev models.Event) {
	if h.publisher != nil {
		if err := h.publisher.PublishEvent(ev); err != nil {
			metrics.EventPublishErrorTotal.Inc()
			log.Warnf("Failed to publish %s event for %s: %v", ev.Type, ev.ReportID, err)
		}
	}
	if h.hub != nil {
		h.hub.BroadcastEvent(ev)
	}
}

// discardImage drops a stored upload that no report ended up referring to.
func (h *Handlers) discardImage(ctx context.Context, ref models.ImageRef) {
	if err := h.images.DeleteImage(context.WithoutCancel(ctx), ref); err != nil {
		log.Warnf("Failed to discard unreferenced image %s: %v", ref, err)
	}
}

// Health returns the service status along with its dependencies. A failed
// database ping is unhealthy; the broker only degrades the service.
func (h *Handlers) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK

	dbState := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()
	if err := h.reports.Ping(ctx); err != nil {
		log.Errorf("Health: database ping failed: %v", err)
		dbState = err.Error()
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	broker := "disabled"
	if h.publisher != nil {
		broker = "connected"
		if !h.publisher.IsConnected() {
			broker = "disconnected"
			if code == http.StatusOK {
				status = "degraded"
			}
		}
	}

	resp := gin.H{
		"status":   status,
		"service":  "safai-setu",
		"time":     h.now().Format(time.RFC3339),
		"database": dbState,
		"rabbitmq": broker,
	}
	if h.hub != nil {
		connectedClients, broadcasts := h.hub.GetStats()
		resp["connected_clients"] = connectedClients
		resp["broadcasts"] = broadcasts
	}
	c.JSON(code, resp)
}

// Help prints a short description of the API
func (h *Handlers) Help(c *gin.Context) {
	c.String(http.StatusOK, `Safai Setu report service

GET  /api/v3/reports                     list reports (?search=&status=)
GET  /api/v3/reports/metrics             status counts
POST /api/v3/reports                     submit a report (multipart: report, imageFile)
GET  /api/v3/reports/:id                 one report
GET  /api/v3/reports/:id/details         report with both images
GET  /api/v3/reports/:id/image           evidence image
GET  /api/v3/reports/:id/resolved-image  resolution image
PUT  /api/v3/reports/:id/resolve         claim resolution (multipart: image)
PUT  /api/v3/reports/:id/status          request a status {"status": "..."}
PUT  /api/v3/admin/verify/:id            verify a resolution (admin token)
GET  /api/v3/map                         aggregated map view
GET  /api/v3/map/geojson                 markers as GeoJSON
GET  /api/v3/reports/listen              websocket change feed
`)
}
