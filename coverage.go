package hexstat

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"
)

// Coverage returns the H3 cells at resolution res whose centroid lies
// inside region. Members of a MultiPolygon are filled independently and
// merged without duplicates. The result is sorted by cell id.
func Coverage(region orb.Geometry, res int) ([]h3.Cell, error) {
	if err := validateResolution(res); err != nil {
		return nil, err
	}

	polys, err := polygonsOf(region)
	if err != nil {
		return nil, err
	}

	seen := make(map[h3.Cell]struct{})
	for _, p := range polys {
		cells, err := h3.PolygonToCells(toGeoPolygon(p), res)
		if err != nil {
			return nil, fmt.Errorf("hexstat: polyfill at resolution %d: %w", res, err)
		}
		for _, c := range cells {
			seen[c] = struct{}{}
		}
	}

	out := make([]h3.Cell, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// CellPolygon returns the boundary of cell as a closed (lon, lat) ring.
func CellPolygon(cell h3.Cell) (orb.Polygon, error) {
	boundary, err := cell.Boundary()
	if err != nil {
		return nil, fmt.Errorf("hexstat: boundary of %s: %w", cell, err)
	}

	ring := make(orb.Ring, 0, len(boundary)+1)
	for _, ll := range boundary {
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, nil
}

// ParseCell parses an H3 cell id in its hex string form.
func ParseCell(s string) (h3.Cell, error) {
	c := h3.Cell(h3.IndexFromString(s))
	if !c.IsValid() {
		return 0, fmt.Errorf("hexstat: invalid H3 cell %q", s)
	}
	return c, nil
}

func validateResolution(res int) error {
	if res < MinResolution || res > MaxResolution {
		return fmt.Errorf("%w: resolution %d outside [%d, %d]", ErrConfiguration, res, MinResolution, MaxResolution)
	}
	return nil
}

// toGeoPolygon flips (lon, lat) rings into the (lat, lon) loops polyfill
// expects. Loops are implicitly closed, so the repeated last vertex is
// dropped.
func toGeoPolygon(p orb.Polygon) h3.GeoPolygon {
	gp := h3.GeoPolygon{GeoLoop: toGeoLoop(p[0])}
	for _, hole := range p[1:] {
		gp.Holes = append(gp.Holes, toGeoLoop(hole))
	}
	return gp
}

func toGeoLoop(r orb.Ring) h3.GeoLoop {
	if len(r) > 1 && r.Closed() {
		r = r[:len(r)-1]
	}
	loop := make(h3.GeoLoop, 0, len(r))
	for _, pt := range r {
		loop = append(loop, h3.NewLatLng(pt[1], pt[0]))
	}
	return loop
}
