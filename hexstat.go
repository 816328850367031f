// Package hexstat aggregates a single-band raster onto the H3 hexagonal grid.
// It restricts the grid to a polygonal region of interest and produces one
// summary statistic per hex cell, reading masks and writing results as
// GeoJSON, FlatGeobuf or CSV with orb geometries.
package hexstat

import (
	"errors"
)

// Errors returned by this package. Fatal errors are wrapped with the
// offending input so that errors.Is still matches the sentinel.
var (
	ErrParse               = errors.New("hexstat: malformed region mask")
	ErrUnsupportedGeometry = errors.New("hexstat: unsupported geometry type")
	ErrConfiguration       = errors.New("hexstat: invalid configuration")
	ErrRasterAccess        = errors.New("hexstat: raster cannot be opened")

	ErrNoOverlap          = errors.New("hexstat: geometry does not overlap raster")
	ErrDegenerateGeometry = errors.New("hexstat: degenerate geometry")
	ErrEmptyResults       = errors.New("hexstat: no results to write")
)

// MinResolution and MaxResolution bound the H3 resolution levels.
const (
	MinResolution = 0
	MaxResolution = 15
)

// StatResult is the statistic computed for one hex cell.
type StatResult struct {
	Cell       string  // H3 cell id
	Resolution int     // H3 resolution of Cell
	Value      float64 // Statistic over the valid pixels
	Pixels     int     // Number of valid pixels that contributed
}

// Options configures a single aggregation run. The H3 resolution is that
// of the candidate cells.
type Options struct {
	Stat Stat // Statistic to compute

	// SkipIntersectionCheck drops the raster-space intersection test and
	// trusts the centroid polyfill alone.
	SkipIntersectionCheck bool
}

// DefaultOptions returns the defaults used by the command line tool.
func DefaultOptions() *Options {
	return &Options{
		Stat: StatMean,
	}
}
