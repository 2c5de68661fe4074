package map_aggr

import (
	"slices"
	"sort"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

type aggrUnit struct {
	cnt         int64
	containment [4]bool // 4 elements, one per child cell
	pin         s2.Point
	members     []int // indexes into the marker list
}

type mapAggregatorS2 struct {
	level  int
	points map[s2.CellID][]int
	aggrs  map[s2.CellID]*aggrUnit
}

const (
	expectedCells       = 16
	minLevel            = 2
	maxLevel            = 18
	minRepToAggr        = 10
	weightDiffThreshold = 8
)

// CellBaseLevel returns the S2 level at which about expectedCells cells
// cover the viewport.
func CellBaseLevel(vp *ViewPort) int {
	center := vp.Center()
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{
			Lo: minLL.Lat.Radians(),
			Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{
			Lo: minLL.Lng.Radians(),
			Hi: maxLL.Lng.Radians()},
	}

	vpArea := rect.Area()

	centerLL := s2.CellIDFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lon))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(centerLL.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel
}

func newMapAggregatorS2(vp *ViewPort) *mapAggregatorS2 {
	return &mapAggregatorS2{
		level:  CellBaseLevel(vp),
		points: make(map[s2.CellID][]int),
		aggrs:  make(map[s2.CellID]*aggrUnit),
	}
}

func (a *mapAggregatorS2) addMarker(idx int, m Marker) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(m.Latitude, m.Longitude))
	parent := pc.Parent(maxLevel)
	a.points[parent] = append(a.points[parent], idx)
}

// clusters aggregates the added markers. Units small enough to show
// individually become one single-member cluster per marker.
func (a *mapAggregatorS2) clusters(markers []Marker) []Cluster {
	a.aggregate()
	res := make([]Cluster, 0, len(a.aggrs))
	for _, unit := range a.aggrs {
		idx := slices.Clone(unit.members)
		sort.Ints(idx)
		if unit.cnt <= minRepToAggr {
			for _, i := range idx {
				m := markers[i]
				res = append(res, Cluster{
					Latitude:  m.Latitude,
					Longitude: m.Longitude,
					Count:     1,
					Members:   []Marker{m},
				})
			}
			continue
		}
		members := make([]Marker, 0, len(idx))
		for _, i := range idx {
			members = append(members, markers[i])
		}
		ll := s2.LatLngFromPoint(unit.pin)
		res = append(res, Cluster{
			Latitude:  ll.Lat.Degrees(),
			Longitude: ll.Lng.Degrees(),
			Count:     len(members),
			Members:   members,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Latitude != res[j].Latitude {
			return res[i].Latitude < res[j].Latitude
		}
		if res[i].Longitude != res[j].Longitude {
			return res[i].Longitude < res[j].Longitude
		}
		return res[i].Members[0].ReportID < res[j].Members[0].ReportID
	})
	return res
}

func (a *mapAggregatorS2) computeCentroid(pCell s2.CellID, chAggrs []*aggrUnit) s2.Point {
	fChPins := make([]s2.Point, 0)
	maxWeight := int64(0)
	for _, aggr := range chAggrs {
		if maxWeight < aggr.cnt {
			maxWeight = aggr.cnt
		}
	}
	// Children much lighter than the heaviest one do not move the pin.
	for _, aggr := range chAggrs {
		if maxWeight/aggr.cnt < weightDiffThreshold {
			fChPins = append(fChPins, aggr.pin)
		}
	}
	switch len(fChPins) {
	case 1:
		return fChPins[0]
	case 2:
		return s2.PlanarCentroid(fChPins[0], fChPins[0], fChPins[1])
	case 3:
		return s2.PlanarCentroid(fChPins[0], fChPins[1], fChPins[2])
	}
	return s2.PointFromLatLng(pCell.LatLng())
}

func (a *mapAggregatorS2) aggrStep(level int) {
	if level < a.level {
		return
	}
	// Merge the units of level+1 into their parents on level.
	nextAggrs := make(map[s2.CellID]*aggrUnit)
	for cell, unit := range a.aggrs {
		p := cell.Parent(level)
		pu, ok := nextAggrs[p]
		if !ok {
			pu = &aggrUnit{}
			nextAggrs[p] = pu
		}
		pu.cnt += unit.cnt
		pu.members = append(pu.members, unit.members...)
		pu.containment[cell.ChildPosition(level+1)] = true
	}
	// The pin of a parent is the centroid of its children pins.
	for pCell, pUnit := range nextAggrs {
		chAggrs := make([]*aggrUnit, 0, 4)
		children := pCell.Children()
		for i, v := range pUnit.containment {
			if !v {
				continue
			}
			if chAggr, ok := a.aggrs[children[i]]; ok {
				chAggrs = append(chAggrs, chAggr)
			}
		}
		pUnit.pin = a.computeCentroid(pCell, chAggrs)
	}
	a.aggrs = nextAggrs
	a.aggrStep(level - 1)
}

func (a *mapAggregatorS2) aggregate() {
	for cell, pts := range a.points {
		a.aggrs[cell] = &aggrUnit{
			cnt:         int64(len(pts)),
			containment: [4]bool{true, true, true, true},
			pin:         s2.PointFromLatLng(cell.LatLng()),
			members:     pts,
		}
	}
	a.aggrStep(maxLevel - 1)
}
