package hexstat

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
)

// polygonsOf splits a polygonal geometry into its member polygons.
func polygonsOf(g orb.Geometry) ([]orb.Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, nil
		}
		return []orb.Polygon{v}, nil
	case orb.MultiPolygon:
		polys := make([]orb.Polygon, 0, len(v))
		for _, p := range v {
			if len(p) > 0 {
				polys = append(polys, p)
			}
		}
		return polys, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

// isEmpty reports whether g has no polygonal area to work with.
func isEmpty(g orb.Geometry) bool {
	polys, err := polygonsOf(g)
	return err == nil && len(polys) == 0
}

// intersects reports whether two polygonal geometries share at least one
// point. Touching boundaries count as an intersection.
func intersects(a, b orb.Geometry) bool {
	pa, err := polygonsOf(a)
	if err != nil {
		return false
	}
	pb, err := polygonsOf(b)
	if err != nil {
		return false
	}

	for _, p := range pa {
		for _, q := range pb {
			if polygonsIntersect(p, q) {
				return true
			}
		}
	}
	return false
}

// polygonsIntersect treats any shared vertex, vertex on an edge or
// contained vertex as contact; crossing edges without such contact leave a
// clipped area.
func polygonsIntersect(p, q orb.Polygon) bool {
	if !p.Bound().Intersects(q.Bound()) {
		return false
	}

	gp, gq := toClipPolygon(p), toClipPolygon(q)
	if anyVertexWithin(gp, gq) || anyVertexWithin(gq, gp) {
		return true
	}
	return gp.Intersection(gq).Area() > 0
}

// anyVertexWithin reports whether a vertex of p lies inside or on the edge
// of q.
func anyVertexWithin(p, q geom.Polygon) bool {
	for _, path := range p {
		for _, pt := range path {
			if pt.Within(q) != geom.Outside {
				return true
			}
		}
	}
	return false
}

// ringInside reports whether inner lies within outer, given that the two
// rings do not cross. Shared vertices are ignored.
func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner.Bound().Min) || !outer.Bound().Contains(inner.Bound().Max) {
		return false
	}
	container := toClipPolygon(orb.Polygon{outer})
	for _, pt := range inner {
		switch (geom.Point{X: pt[0], Y: pt[1]}).Within(container) {
		case geom.OnEdge:
			continue
		case geom.Inside:
			return true
		default:
			return false
		}
	}
	return false
}
