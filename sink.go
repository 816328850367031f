package hexstat

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Sink receives the results of a run. Write may be called several times;
// Close flushes and releases the destination.
type Sink interface {
	Write(ctx context.Context, results []StatResult) error
	Close() error
}

// Format names a file sink encoding.
type Format string

// Supported file formats.
const (
	FormatCSV        Format = "csv"
	FormatGeoJSON    Format = "geojson"
	FormatFlatGeobuf Format = "fgb"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatGeoJSON, FormatFlatGeobuf:
		return f, nil
	case "json":
		return FormatGeoJSON, nil
	case "flatgeobuf":
		return FormatFlatGeobuf, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q", ErrConfiguration, s)
	}
}

// NewFileSink creates path and returns a sink writing the given format.
func NewFileSink(format Format, path string) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("hexstat: creating %s: %w", path, err)
	}

	switch format {
	case FormatCSV:
		return NewCSVSink(f)
	case FormatGeoJSON:
		return NewGeoJSONSink(f), nil
	case FormatFlatGeobuf:
		return NewFlatGeobufSink(f, nil), nil
	}
	f.Close()
	return nil, fmt.Errorf("%w: unknown output format %q", ErrConfiguration, format)
}

// SortResults orders results by cell id.
func SortResults(results []StatResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Cell < results[j].Cell })
}

// CSVSink writes rows of h3,res,value.
type CSVSink struct {
	w   io.WriteCloser
	csv *csv.Writer
}

// NewCSVSink writes the header row immediately, so a run without results
// still yields a valid file.
func NewCSVSink(w io.WriteCloser) (*CSVSink, error) {
	s := &CSVSink{w: w, csv: csv.NewWriter(w)}
	if err := s.csv.Write([]string{"h3", "res", "value"}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) Write(_ context.Context, results []StatResult) error {
	for _, r := range results {
		row := []string{
			r.Cell,
			strconv.Itoa(r.Resolution),
			FormatValue(r.Value),
		}
		if err := s.csv.Write(row); err != nil {
			return err
		}
	}
	s.csv.Flush()
	return s.csv.Error()
}

func (s *CSVSink) Close() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}

// FormatValue renders v as the shortest decimal that round-trips. Whole
// numbers keep a ".0" suffix, and magnitudes below 1e-4 or from 1e16 up use
// exponent form, e.g. 2.0, 0.25, 1e-07, 1e+16.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ResultsFeatureCollection turns results into hexagon features with h3,
// res, value and pixels properties.
func ResultsFeatureCollection(results []StatResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		poly, err := resultPolygon(r)
		if err != nil {
			continue
		}
		f := geojson.NewFeature(poly)
		f.Properties = geojson.Properties{
			"h3":     r.Cell,
			"res":    r.Resolution,
			"value":  r.Value,
			"pixels": r.Pixels,
		}
		fc.Append(f)
	}
	return fc
}

// GeoJSONSink buffers results and writes one FeatureCollection on Close.
type GeoJSONSink struct {
	w       io.WriteCloser
	results []StatResult
}

func NewGeoJSONSink(w io.WriteCloser) *GeoJSONSink {
	return &GeoJSONSink{w: w}
}

func (s *GeoJSONSink) Write(_ context.Context, results []StatResult) error {
	s.results = append(s.results, results...)
	return nil
}

func (s *GeoJSONSink) Close() error {
	SortResults(s.results)
	data, err := json.Marshal(ResultsFeatureCollection(s.results))
	if err != nil {
		s.w.Close()
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}

// FlatGeobufSink buffers results and writes a FlatGeobuf file on Close.
// An empty run leaves an empty file, since FlatGeobuf needs one feature.
type FlatGeobufSink struct {
	w       io.WriteCloser
	opts    *FGBOptions
	results []StatResult
}

func NewFlatGeobufSink(w io.WriteCloser, opts *FGBOptions) *FlatGeobufSink {
	if opts == nil {
		opts = DefaultFGBOptions()
	}
	return &FlatGeobufSink{w: w, opts: opts}
}

func (s *FlatGeobufSink) Write(_ context.Context, results []StatResult) error {
	s.results = append(s.results, results...)
	return nil
}

func (s *FlatGeobufSink) Close() error {
	if len(s.results) == 0 {
		return s.w.Close()
	}
	SortResults(s.results)
	if err := WriteResultsFGB(s.w, s.results, s.opts); err != nil {
		s.w.Close()
		return err
	}
	return s.w.Close()
}
