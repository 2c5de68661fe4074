package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on router. caller resolves the request
// identity; throttle guards the upload endpoints.
func (h *Handlers) RegisterRoutes(router gin.IRouter, caller gin.HandlerFunc, throttle gin.HandlerFunc) {
	router.GET("/health", h.Health)
	router.GET("/help", h.Help)

	api := router.Group("/api/v3", caller)
	{
		api.GET("/reports", h.ListReports)
		api.GET("/reports/metrics", h.GetMetrics)
		api.POST("/reports", throttle, h.CreateReport)
		api.GET("/reports/:id", h.GetReport)
		api.GET("/reports/:id/details", h.GetReportDetails)
		api.GET("/reports/:id/image", h.GetImage)
		api.GET("/reports/:id/resolved-image", h.GetResolvedImage)
		api.PUT("/reports/:id/resolve", throttle, h.ResolveReport)
		api.PUT("/reports/:id/status", h.UpdateStatus)
		api.PUT("/admin/verify/:id", h.VerifyReport)

		api.GET("/map", h.GetMap)
		api.GET("/map/geojson", h.GetMapGeoJSON)
	}
}
