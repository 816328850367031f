package hexstat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

// unitSquare is a 0.02 degree square near Bologna.
var unitSquare = orb.Polygon{{{11.30, 44.48}, {11.32, 44.48}, {11.32, 44.50}, {11.30, 44.50}, {11.30, 44.48}}}

// sampleResults returns one result per cell covering unitSquare at res,
// valued by position.
func sampleResults(t testing.TB, res int) []StatResult {
	t.Helper()
	cells, err := Coverage(unitSquare, res)
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	if len(cells) == 0 {
		t.Fatalf("no cells at resolution %d", res)
	}

	results := make([]StatResult, len(cells))
	for i, c := range cells {
		results[i] = StatResult{Cell: c.String(), Resolution: res, Value: float64(i) + 0.5, Pixels: i + 1}
	}
	return results
}

func writeFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// constantGrid covers b with a width x height raster in EPSG:4326 where
// every pixel holds v.
func constantGrid(t testing.TB, b orb.Bound, width, height int, v float64) *Grid {
	t.Helper()
	values := make([]float64, width*height)
	for i := range values {
		values[i] = v
	}
	gt := Affine{b.Min[0], (b.Right() - b.Left()) / float64(width), 0, b.Max[1], 0, -(b.Top() - b.Bottom()) / float64(height)}
	g, err := NewGrid(width, height, gt, values)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	return g
}
