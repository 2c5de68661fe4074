// Package map_aggr turns a report collection into the structures a map view
// renders: status classified markers, proximity clusters and heat samples.
//
// Every call recomputes the view from the full collection it is given; no
// state survives between calls.
package map_aggr

import (
	"safaisetu/models"
)

// Class is the visual class of a marker.
type Class string

const (
	ClassPending              Class = "pending"
	ClassAwaitingVerification Class = "awaiting-verification"
	ClassResolved             Class = "resolved"
)

// ClassOf maps a status to its visual class. Unknown statuses fall back to
// ClassPending.
func ClassOf(s models.Status) Class {
	switch s {
	case models.StatusPendingVerification:
		return ClassAwaitingVerification
	case models.StatusResolved:
		return ClassResolved
	default:
		return ClassPending
	}
}

type Marker struct {
	ReportID  string        `json:"report_id"`
	Status    models.Status `json:"status"`
	Class     Class         `json:"class"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Label     string        `json:"label"`
	Address   string        `json:"address"`
}

type HeatSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Weight    float64 `json:"weight"`
}

// Cluster groups nearby markers. A cluster with Count 1 is a lone marker.
// Members always holds every grouped marker.
type Cluster struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Count     int      `json:"count"`
	Members   []Marker `json:"members"`
}

type AggregatedView struct {
	Markers  []Marker     `json:"markers"`
	Clusters []Cluster    `json:"clusters"`
	Heat     []HeatSample `json:"heat"`
}

type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

func (vp ViewPort) Center() models.Point {
	return models.Point{
		Lat: (vp.LatMin + vp.LatMax) / 2,
		Lon: (vp.LonMin + vp.LonMax) / 2,
	}
}

// Aggregate builds the view using the bounding box of the located reports as
// the view scale.
func Aggregate(reports []models.Report) AggregatedView {
	return AggregateInView(reports, nil)
}

// AggregateInView builds the view clustering at the scale of vp. A nil vp
// means the bounding box of the located reports.
func AggregateInView(reports []models.Report, vp *ViewPort) AggregatedView {
	view := AggregatedView{
		Markers:  make([]Marker, 0, len(reports)),
		Clusters: make([]Cluster, 0),
		Heat:     make([]HeatSample, 0, len(reports)),
	}
	for _, r := range reports {
		p, ok := r.Location()
		if !ok {
			continue
		}
		view.Markers = append(view.Markers, Marker{
			ReportID:  r.ID,
			Status:    r.Status,
			Class:     ClassOf(r.Status),
			Latitude:  p.Lat,
			Longitude: p.Lon,
			Label:     r.Heading,
			Address:   r.Address,
		})
		view.Heat = append(view.Heat, HeatSample{Latitude: p.Lat, Longitude: p.Lon, Weight: 1})
	}
	if len(view.Markers) == 0 {
		return view
	}

	if vp == nil {
		bb := boundingBox(view.Markers)
		vp = &bb
	}
	a := newMapAggregatorS2(vp)
	for i := range view.Markers {
		a.addMarker(i, view.Markers[i])
	}
	view.Clusters = a.clusters(view.Markers)
	return view
}

// Decluster expands clusters back to their markers.
func Decluster(clusters []Cluster) []Marker {
	markers := make([]Marker, 0, len(clusters))
	for _, c := range clusters {
		markers = append(markers, c.Members...)
	}
	return markers
}

func boundingBox(markers []Marker) ViewPort {
	vp := ViewPort{
		LatMin: markers[0].Latitude,
		LonMin: markers[0].Longitude,
		LatMax: markers[0].Latitude,
		LonMax: markers[0].Longitude,
	}
	for _, m := range markers[1:] {
		vp.LatMin = min(vp.LatMin, m.Latitude)
		vp.LatMax = max(vp.LatMax, m.Latitude)
		vp.LonMin = min(vp.LonMin, m.Longitude)
		vp.LonMax = max(vp.LonMax, m.Longitude)
	}
	return vp
}
