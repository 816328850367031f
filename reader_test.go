package hexstat

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestNewReaderFromData_Invalid(t *testing.T) {
	_, err := NewReaderFromData([]byte("not a flatgeobuf file"))
	if err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestNewReader_NonExistent(t *testing.T) {
	_, err := NewReader("/nonexistent/path/file.fgb")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestRoundTrip_Results(t *testing.T) {
	want := sampleResults(t, 9)
	path := filepath.Join(t.TempDir(), "results.fgb")

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	err = WriteResultsFGB(file, want, nil)
	_ = file.Close()
	if err != nil {
		t.Fatalf("WriteResultsFGB failed: %v", err)
	}

	got, err := ReadResultsFGB(path)
	if err != nil {
		t.Fatalf("ReadResultsFGB failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestReadGeometries_Hexagons(t *testing.T) {
	results := sampleResults(t, 9)

	var buf bytes.Buffer
	if err := WriteResultsFGB(&buf, results, nil); err != nil {
		t.Fatalf("WriteResultsFGB failed: %v", err)
	}
	r, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	geoms, err := r.ReadGeometries()
	if err != nil {
		t.Fatalf("ReadGeometries failed: %v", err)
	}
	if len(geoms) != len(results) {
		t.Fatalf("expected %d geometries, got %d", len(results), len(geoms))
	}
	for i, g := range geoms {
		poly, ok := g.(orb.Polygon)
		if !ok {
			t.Fatalf("geometry %d: expected Polygon, got %T", i, g)
		}
		if len(poly) != 1 || !poly[0].Closed() {
			t.Errorf("geometry %d: expected one closed ring", i)
		}
	}
}

func TestReadResults_NoIndex(t *testing.T) {
	var buf bytes.Buffer
	opts := &FGBOptions{Name: "noindex", IncludeIndex: false}
	if err := WriteResultsFGB(&buf, sampleResults(t, 9), opts); err != nil {
		t.Fatalf("WriteResultsFGB failed: %v", err)
	}

	r, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	h := r.Header()
	if h.HasIndex {
		t.Error("expected no spatial index")
	}
	if want := uint64(len(sampleResults(t, 9))); h.FeaturesCount != want {
		t.Errorf("expected %d features in header, got %d", want, h.FeaturesCount)
	}
	if _, err := r.ReadResults(); !errors.Is(err, ErrNoIndex) {
		t.Errorf("ReadResults: expected ErrNoIndex, got %v", err)
	}
	if _, err := r.ReadGeometries(); !errors.Is(err, ErrNoIndex) {
		t.Errorf("ReadGeometries: expected ErrNoIndex, got %v", err)
	}
}

func TestHeader_Envelope(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResultsFGB(&buf, sampleResults(t, 9), nil); err != nil {
		t.Fatalf("WriteResultsFGB failed: %v", err)
	}
	r, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}

	env := r.Header().Envelope
	if !env.Intersects(unitSquare.Bound()) {
		t.Errorf("envelope %v should overlap %v", env, unitSquare.Bound())
	}
}
