package hexstat

import (
	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
)

// unionPolygons merges polys into a single polygonal geometry. Overlaps
// are dissolved and slivers left by reprojection are absorbed. A single
// polygon is returned untouched.
func unionPolygons(polys []orb.Polygon) orb.Geometry {
	switch len(polys) {
	case 0:
		return orb.MultiPolygon{}
	case 1:
		return polys[0]
	}

	var acc geom.Polygonal = toClipPolygon(polys[0])
	for _, p := range polys[1:] {
		acc = acc.Union(toClipPolygon(p))
	}
	return fromClipPolygon(acc.(geom.Polygon))
}

func toClipPolygon(p orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, 0, len(p))
	for _, r := range p {
		path := make(geom.Path, 0, len(r))
		for _, pt := range r {
			path = append(path, geom.Point{X: pt[0], Y: pt[1]})
		}
		out = append(out, path)
	}
	return out
}

// fromClipPolygon converts the flat contour list produced by polygon
// clipping back into orb polygons, nesting holes under their exteriors.
func fromClipPolygon(p geom.Polygon) orb.Geometry {
	rings := make([]orb.Ring, 0, len(p))
	for _, path := range p {
		if len(path) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(path)+1)
		for _, pt := range path {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		if !r.Closed() {
			r = append(r, r[0])
		}
		rings = append(rings, r)
	}
	return assemblePolygons(rings)
}

// assemblePolygons groups non-crossing rings into polygons. A ring nested
// inside an even number of rings is an exterior; an odd count makes it a
// hole of its innermost enclosing exterior.
func assemblePolygons(rings []orb.Ring) orb.Geometry {
	depth := make([]int, len(rings))
	for i := range rings {
		for j := range rings {
			if i != j && ringInside(rings[i], rings[j]) {
				depth[i]++
			}
		}
	}

	var mp orb.MultiPolygon
	owner := make(map[int]int) // exterior ring index -> polygon index
	for i, r := range rings {
		if depth[i]%2 == 0 {
			owner[i] = len(mp)
			mp = append(mp, orb.Polygon{r})
		}
	}

	for i, r := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		best, bestArea := -1, 0.0
		for j := range rings {
			if depth[j] != depth[i]-1 || !ringInside(r, rings[j]) {
				continue
			}
			if a := boundArea(rings[j].Bound()); best < 0 || a < bestArea {
				best, bestArea = j, a
			}
		}
		if best >= 0 {
			k := owner[best]
			mp[k] = append(mp[k], r)
		}
	}

	switch len(mp) {
	case 0:
		return orb.MultiPolygon{}
	case 1:
		return mp[0]
	}
	return mp
}

func boundArea(b orb.Bound) float64 {
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
}
