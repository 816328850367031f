package hexstat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// LoadRegion reads a region mask and returns the union of its polygonal
// geometries in EPSG:4326. The format follows the file extension: .fgb is
// FlatGeobuf, .wkt is a single WKT geometry, anything else is GeoJSON.
// A mask without polygons yields an empty MultiPolygon.
func LoadRegion(path string) (orb.Geometry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fgb":
		r, err := NewReader(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
		}
		defer r.Close()

		geoms, err := r.ReadGeometries()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
		}
		return RegionFromGeometries(geoms), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".wkt") {
		g, err := wkt.Unmarshal(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
		}
		return RegionFromGeometries([]orb.Geometry{g}), nil
	}

	region, err := ParseRegion(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	return region, nil
}

// ParseRegion parses a GeoJSON document into a region. FeatureCollection is
// the normal form; a bare Feature or Geometry is accepted too.
func ParseRegion(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		for _, f := range fc.Features {
			if f != nil && f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	case "":
		return nil, fmt.Errorf("%w: missing GeoJSON type", ErrParse)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		geoms = append(geoms, g.Geometry())
	}

	return RegionFromGeometries(geoms), nil
}

// RegionFromGeometries unions the polygonal members of geoms. Points and
// lines are ignored; collections are searched recursively.
func RegionFromGeometries(geoms []orb.Geometry) orb.Geometry {
	var polys []orb.Polygon
	for _, g := range geoms {
		polys = appendPolygons(polys, g)
	}
	return unionPolygons(polys)
}

func appendPolygons(polys []orb.Polygon, g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 {
			polys = append(polys, v)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 {
				polys = append(polys, p)
			}
		}
	case orb.Collection:
		for _, child := range v {
			polys = appendPolygons(polys, child)
		}
	}
	return polys
}
