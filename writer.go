package hexstat

import (
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// FGBOptions configures FlatGeobuf result files.
type FGBOptions struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (required to read the file back)
}

// DefaultFGBOptions returns default options for result files.
func DefaultFGBOptions() *FGBOptions {
	return &FGBOptions{
		Name:         "hexstat",
		IncludeIndex: true,
	}
}

// WriteResultsFGB writes results as hexagon polygons in EPSG:4326 with
// h3, res, value and pixels columns. Cells whose boundary cannot be built
// are skipped.
func WriteResultsFGB(w io.Writer, results []StatResult, opts *FGBOptions) error {
	if opts == nil {
		opts = DefaultFGBOptions()
	}

	gen := &resultFeatureGenerator{}
	for _, r := range results {
		poly, err := resultPolygon(r)
		if err != nil {
			continue
		}
		gen.results = append(gen.results, r)
		gen.polygons = append(gen.polygons, poly)
	}
	if len(gen.results) == 0 {
		return ErrEmptyResults
	}

	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(flattypes.GeometryTypePolygon)
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	header.SetColumns(buildResultColumns(builder))

	wgs := WGS84()
	crs := writer.NewCrs(builder)
	crs.SetOrg("EPSG")
	crs.SetCode(int32(wgs.Code))
	crs.SetName(wgs.Name)
	header.SetCrs(crs)
	// The writer only counts features while building the index.
	header.SetFeaturesCount(uint64(len(gen.results)))

	fgbWriter := writer.NewWriter(header, opts.IncludeIndex, gen, nil)

	_, err := fgbWriter.Write(w)
	return err
}

// resultFeatureGenerator yields one polygon feature per result.
type resultFeatureGenerator struct {
	results  []StatResult
	polygons []orb.Polygon
	index    int
}

func (g *resultFeatureGenerator) Generate() *writer.Feature {
	for g.index < len(g.results) {
		r, poly := g.results[g.index], g.polygons[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		fgbGeom := polygonToFGB(poly, builder)
		if fgbGeom == nil {
			continue
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(fgbGeom)
		feature.SetProperties(encodeResult(r))
		return feature
	}
	return nil
}

func resultPolygon(r StatResult) (orb.Polygon, error) {
	cell, err := ParseCell(r.Cell)
	if err != nil {
		return nil, err
	}
	return CellPolygon(cell)
}
