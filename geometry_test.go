package hexstat

import (
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

func TestPolygonToXYEnds(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
	}

	xy, ends := polygonToXYEnds(poly)

	if len(xy) != 20 {
		t.Fatalf("expected 20 coordinates, got %d", len(xy))
	}
	if len(ends) != 2 || ends[0] != 5 || ends[1] != 10 {
		t.Errorf("expected ends [5 10], got %v", ends)
	}
	if xy[10] != 2 || xy[11] != 2 {
		t.Errorf("hole should start at (2, 2), got (%v, %v)", xy[10], xy[11])
	}
}

func TestPolygonToFGB(t *testing.T) {
	builder := flatbuffers.NewBuilder(256)

	if g := polygonToFGB(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, builder); g == nil {
		t.Error("expected non-nil geometry")
	}
	if g := polygonToFGB(orb.Polygon{}, builder); g != nil {
		t.Error("expected nil geometry for empty polygon")
	}
}

func TestGeometryFromFGB_Nil(t *testing.T) {
	if g := geometryFromFGB(nil); g != nil {
		t.Errorf("expected nil, got %v", g)
	}
}
