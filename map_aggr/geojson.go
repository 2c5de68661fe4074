package map_aggr

import (
	geojson "github.com/paulmach/go.geojson"
)

// FeatureCollection exports the markers as GeoJSON points. Coordinates are
// in [lon, lat] order.
func (v AggregatedView) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range v.Markers {
		f := geojson.NewPointFeature([]float64{m.Longitude, m.Latitude})
		f.ID = m.ReportID
		f.SetProperty("report_id", m.ReportID)
		f.SetProperty("status", string(m.Status))
		f.SetProperty("class", string(m.Class))
		f.SetProperty("label", m.Label)
		f.SetProperty("address", m.Address)
		fc.AddFeature(f)
	}
	return fc
}
