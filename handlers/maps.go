package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"safaisetu/map_aggr"
	"safaisetu/metrics"

	"github.com/gin-gonic/gin"
)

// viewPort reads latmin, lonmin, latmax and lonmax. All four or none must be
// given; none yields nil.
func viewPort(c *gin.Context) (*map_aggr.ViewPort, error) {
	keys := []string{"latmin", "lonmin", "latmax", "lonmax"}
	vals := make([]float64, len(keys))
	given := 0
	for i, k := range keys {
		s := c.Query(k)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s %q", errBadQuery, k, s)
		}
		vals[i] = v
		given++
	}
	if given == 0 {
		return nil, nil
	}
	if given != len(keys) {
		return nil, fmt.Errorf("%w: latmin, lonmin, latmax and lonmax must be given together", errBadQuery)
	}
	vp := &map_aggr.ViewPort{LatMin: vals[0], LonMin: vals[1], LatMax: vals[2], LonMax: vals[3]}
	if vp.LatMin > vp.LatMax || vp.LatMin < -90 || vp.LatMax > 90 {
		return nil, fmt.Errorf("%w: invalid latitude range", errBadQuery)
	}
	if vp.LonMin < -180 || vp.LonMax > 180 {
		return nil, fmt.Errorf("%w: invalid longitude range", errBadQuery)
	}
	return vp, nil
}

func (h *Handlers) aggregate(c *gin.Context) (map_aggr.AggregatedView, error) {
	vp, err := viewPort(c)
	if err != nil {
		return map_aggr.AggregatedView{}, err
	}
	reports, err := h.filtered(c)
	if err != nil {
		return map_aggr.AggregatedView{}, err
	}
	view := map_aggr.AggregateInView(reports, vp)
	metrics.AggregationMarkers.Observe(float64(len(view.Markers)))
	return view, nil
}

// GetMap returns markers, clusters and heat samples of the filtered reports
func (h *Handlers) GetMap(c *gin.Context) {
	view, err := h.aggregate(c)
	if err != nil {
		respondError(c, "Failed to aggregate reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}

// GetMapGeoJSON returns the markers as a GeoJSON FeatureCollection
func (h *Handlers) GetMapGeoJSON(c *gin.Context) {
	view, err := h.aggregate(c)
	if err != nil {
		respondError(c, "Failed to aggregate reports", err)
		return
	}
	data, err := view.FeatureCollection().MarshalJSON()
	if err != nil {
		respondError(c, "Failed to encode GeoJSON", err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
