package hexstat

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// polygonToFGB converts a polygon to a FlatGeobuf writer.Geometry.
func polygonToFGB(poly orb.Polygon, builder *flatbuffers.Builder) *writer.Geometry {
	if len(poly) == 0 {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(flattypes.GeometryTypePolygon)
	xy, ends := polygonToXYEnds(poly)
	g.SetXY(xy)
	g.SetEnds(ends)
	return g
}

// geometryFromFGB converts the polygonal part of a FlatGeobuf geometry to
// orb. Points and lines carry no area and come back nil.
func geometryFromFGB(fgbGeom *flattypes.Geometry) orb.Geometry {
	if fgbGeom == nil {
		return nil
	}

	switch fgbGeom.Type() {
	case flattypes.GeometryTypePolygon:
		return polygonFromXYEnds(fgbGeom)

	case flattypes.GeometryTypeMultiPolygon:
		return multiPolygonFromParts(fgbGeom)

	case flattypes.GeometryTypeGeometryCollection:
		return collectionFromParts(fgbGeom)

	default:
		return nil
	}
}

func polygonToXYEnds(poly orb.Polygon) ([]float64, []uint32) {
	totalPoints := 0
	for _, ring := range poly {
		totalPoints += len(ring)
	}

	xy := make([]float64, 0, totalPoints*2)
	ends := make([]uint32, 0, len(poly))

	cumulative := uint32(0)
	for _, ring := range poly {
		for _, p := range ring {
			xy = append(xy, p[0], p[1])
		}
		cumulative += uint32(len(ring))
		ends = append(ends, cumulative)
	}

	return xy, ends
}

func polygonFromXYEnds(fgbGeom *flattypes.Geometry) orb.Polygon {
	xyLen := fgbGeom.XyLength()
	if xyLen < 2 {
		return orb.Polygon{}
	}

	endsLen := fgbGeom.EndsLength()
	if endsLen == 0 {
		return orb.Polygon{ringFromXY(fgbGeom, 0, uint32(xyLen/2))}
	}

	poly := make(orb.Polygon, 0, endsLen)
	start := uint32(0)
	for i := 0; i < endsLen; i++ {
		end := fgbGeom.Ends(i)
		poly = append(poly, ringFromXY(fgbGeom, start, end))
		start = end
	}
	return poly
}

// ringFromXY reads vertices [start, end) of the flat coordinate array.
func ringFromXY(fgbGeom *flattypes.Geometry, start, end uint32) orb.Ring {
	xyLen := fgbGeom.XyLength()
	ring := make(orb.Ring, 0, end-start)
	for j := start; j < end; j++ {
		idx := int(j) * 2
		if idx+1 < xyLen {
			ring = append(ring, orb.Point{fgbGeom.Xy(idx), fgbGeom.Xy(idx + 1)})
		}
	}
	return ring
}

func multiPolygonFromParts(fgbGeom *flattypes.Geometry) orb.MultiPolygon {
	partsLen := fgbGeom.PartsLength()
	if partsLen == 0 {
		if poly := polygonFromXYEnds(fgbGeom); len(poly) > 0 {
			return orb.MultiPolygon{poly}
		}
		return orb.MultiPolygon{}
	}

	mp := make(orb.MultiPolygon, 0, partsLen)
	for i := 0; i < partsLen; i++ {
		var part flattypes.Geometry
		if fgbGeom.Parts(&part, i) {
			if poly := polygonFromXYEnds(&part); len(poly) > 0 {
				mp = append(mp, poly)
			}
		}
	}
	return mp
}

func collectionFromParts(fgbGeom *flattypes.Geometry) orb.Collection {
	partsLen := fgbGeom.PartsLength()
	coll := make(orb.Collection, 0, partsLen)
	for i := 0; i < partsLen; i++ {
		var part flattypes.Geometry
		if fgbGeom.Parts(&part, i) {
			if g := geometryFromFGB(&part); g != nil {
				coll = append(coll, g)
			}
		}
	}
	return coll
}
