package hexstat

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestAffine_Invert(t *testing.T) {
	gt := Affine{500000, 10, 0, 4000000, 0, -10}
	inv, err := gt.Invert()
	if err != nil {
		t.Fatalf("Invert failed: %v", err)
	}

	for _, px := range []orb.Point{{0, 0}, {3.5, 7.25}, {100, 42}} {
		world := gt.Apply(px[0], px[1])
		back := inv.Apply(world[0], world[1])
		if math.Abs(back[0]-px[0]) > 1e-9 || math.Abs(back[1]-px[1]) > 1e-9 {
			t.Errorf("expected %v, got %v", px, back)
		}
	}

	if _, err := (Affine{0, 0, 0, 0, 0, 0}).Invert(); err == nil {
		t.Error("expected error for singular transform")
	}
}

// grid4x4 spans (0,0)-(4,4) with one unit pixels valued row*4+col.
func grid4x4(t *testing.T) *Grid {
	t.Helper()
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i)
	}
	g, err := NewGrid(4, 4, Affine{0, 1, 0, 4, 0, -1}, values)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	return g
}

func TestMaskedRead_Window(t *testing.T) {
	g := grid4x4(t)

	win, err := MaskedRead(g, square(1, 1, 2), math.NaN())
	if err != nil {
		t.Fatalf("MaskedRead failed: %v", err)
	}
	if win.Col != 1 || win.Row != 1 || win.Width != 2 || win.Height != 2 {
		t.Errorf("unexpected window %+v", win)
	}
	// Rows 1-2, cols 1-2 of the grid.
	want := []float64{5, 6, 9, 10}
	for i, v := range want {
		if win.Data[i] != v {
			t.Errorf("pixel %d: expected %v, got %v", i, v, win.Data[i])
		}
	}
	if win.Transform[0] != 1 || win.Transform[3] != 3 {
		t.Errorf("unexpected window origin %v", win.Transform)
	}
}

func TestMaskedRead_MasksOutsidePixels(t *testing.T) {
	g := grid4x4(t)
	triangle := orb.Polygon{{{0, 0}, {4.2, 0}, {0, 4.2}, {0, 0}}}

	win, err := MaskedRead(g, triangle, -1)
	if err != nil {
		t.Fatalf("MaskedRead failed: %v", err)
	}
	if len(win.Data) != 16 {
		t.Fatalf("expected full window, got %d values", len(win.Data))
	}

	var kept, masked int
	for _, v := range win.Data {
		if v == -1 {
			masked++
		} else {
			kept++
		}
	}
	// Pixel centres with x+y < 4.2, i.e. on or below the anti-diagonal.
	if kept != 10 || masked != 6 {
		t.Errorf("expected 10 kept and 6 masked, got %d and %d", kept, masked)
	}
	if win.Data[3] != -1 || win.Data[12] != 12 {
		t.Errorf("top-right should be masked and bottom-left kept, got %v and %v", win.Data[3], win.Data[12])
	}
}

func TestMaskedRead_ClipsToRaster(t *testing.T) {
	g := grid4x4(t)
	win, err := MaskedRead(g, square(3, 3, 5), math.NaN())
	if err != nil {
		t.Fatalf("MaskedRead failed: %v", err)
	}
	if win.Width != 1 || win.Height != 1 || win.Data[0] != 3 {
		t.Errorf("expected the top-right pixel, got %+v", win)
	}
}

func TestMaskedRead_Errors(t *testing.T) {
	g := grid4x4(t)

	if _, err := MaskedRead(g, square(10, 10, 1), 0); !errors.Is(err, ErrNoOverlap) {
		t.Errorf("expected ErrNoOverlap, got %v", err)
	}
	line := orb.Polygon{{{0, 0}, {1, 1}, {2, 2}, {0, 0}}}
	if _, err := MaskedRead(g, line, 0); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
	if _, err := MaskedRead(g, orb.Polygon{}, 0); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry, got %v", err)
	}
}

func TestGrid_FillValue(t *testing.T) {
	g := grid4x4(t)
	triangle := orb.Polygon{{{0, 0}, {4.2, 0}, {0, 4.2}, {0, 0}}}

	win, err := g.ReadMasked(triangle)
	if err != nil {
		t.Fatalf("ReadMasked failed: %v", err)
	}
	if !math.IsNaN(win.Data[3]) {
		t.Errorf("without nodata, masked pixels should be NaN, got %v", win.Data[3])
	}

	g.SetNoData(-9999)
	win, err = g.ReadMasked(triangle)
	if err != nil {
		t.Fatalf("ReadMasked failed: %v", err)
	}
	if win.Data[3] != -9999 {
		t.Errorf("with nodata, masked pixels should be -9999, got %v", win.Data[3])
	}
	if win.Data[12] != 12 {
		t.Error("ReadMasked should not modify the grid")
	}
}

func TestNewGrid_Invalid(t *testing.T) {
	if _, err := NewGrid(0, 1, Affine{0, 1, 0, 0, 0, -1}, nil); err == nil {
		t.Error("expected error for empty grid")
	}
	if _, err := NewGrid(2, 2, Affine{0, 1, 0, 0, 0, -1}, []float64{1}); err == nil {
		t.Error("expected error for short values")
	}
	if _, err := NewGrid(1, 1, Affine{}, []float64{1}); err == nil {
		t.Error("expected error for singular transform")
	}
}
