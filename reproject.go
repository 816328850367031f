package hexstat

import (
	"fmt"
	"sync"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
)

// Reprojector transforms polygonal geometries between coordinate reference
// systems. Transformers are built once per (src, dst) pair and reused.
type Reprojector struct {
	mu    sync.Mutex
	cache map[[2]string]proj.Transformer
}

// NewReprojector returns an empty Reprojector.
func NewReprojector() *Reprojector {
	return &Reprojector{cache: make(map[[2]string]proj.Transformer)}
}

var defaultReprojector = NewReprojector()

// Reproject transforms g from src to dst using a shared transformer cache.
func Reproject(g orb.Geometry, src, dst *CRS) (orb.Geometry, error) {
	return defaultReprojector.Reproject(g, src, dst)
}

// Reproject transforms g from src to dst. When the two systems are equal g
// is returned unchanged. Polygons keep their ring order. Members of a
// MultiPolygon are transformed independently and unioned again, since a
// non-linear projection can leave them overlapping.
func (r *Reprojector) Reproject(g orb.Geometry, src, dst *CRS) (orb.Geometry, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		if g == nil {
			return nil, fmt.Errorf("%w: nil geometry", ErrUnsupportedGeometry)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}

	if src.Equal(dst) {
		return g, nil
	}

	t, err := r.transformer(src, dst)
	if err != nil {
		return nil, err
	}

	switch v := g.(type) {
	case orb.Polygon:
		return transformPolygon(v, t)
	case orb.MultiPolygon:
		parts := make([]orb.Polygon, 0, len(v))
		for _, p := range v {
			tp, err := transformPolygon(p, t)
			if err != nil {
				return nil, err
			}
			parts = append(parts, tp)
		}
		if len(parts) == 0 {
			return orb.MultiPolygon{}, nil
		}
		return unionPolygons(parts), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
}

func (r *Reprojector) transformer(src, dst *CRS) (proj.Transformer, error) {
	src, dst = src.orDefault(), dst.orDefault()
	key := [2]string{src.Proj4, dst.Proj4}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.cache[key]; ok {
		return t, nil
	}

	srcSR, err := parseSR(src)
	if err != nil {
		return nil, err
	}
	dstSR, err := parseSR(dst)
	if err != nil {
		return nil, err
	}
	t, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, fmt.Errorf("%w: transform %s -> %s: %v", ErrConfiguration, src, dst, err)
	}

	r.cache[key] = t
	return t, nil
}

// parseSR parses the proj4 definition of c and checks that its projection
// is one the transform library implements. Parsing alone accepts unknown
// projection names.
func parseSR(c *CRS) (*proj.SR, error) {
	sr, err := proj.Parse(c.Proj4)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, c, err)
	}
	if _, _, err := sr.Transformers(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfiguration, c, err)
	}
	return sr, nil
}

// Validate reports whether c can be used for reprojection.
func (c *CRS) Validate() error {
	_, err := parseSR(c.orDefault())
	return err
}

// transformPolygon returns a transformed copy of p.
func transformPolygon(p orb.Polygon, t proj.Transformer) (orb.Polygon, error) {
	out := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		tr := make(orb.Ring, 0, len(ring))
		for _, pt := range ring {
			x, y, err := t(pt[0], pt[1])
			if err != nil {
				return nil, fmt.Errorf("hexstat: transforming (%g, %g): %w", pt[0], pt[1], err)
			}
			tr = append(tr, orb.Point{x, y})
		}
		out = append(out, tr)
	}
	return out, nil
}
