package hexstat

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Affine is a geotransform in GDAL order. A pixel corner (col, row) maps to
//
//	x = A[0] + col*A[1] + row*A[2]
//	y = A[3] + col*A[4] + row*A[5]
type Affine [6]float64

// Apply maps pixel coordinates to CRS coordinates.
func (a Affine) Apply(col, row float64) orb.Point {
	return orb.Point{
		a[0] + col*a[1] + row*a[2],
		a[3] + col*a[4] + row*a[5],
	}
}

// Invert returns the transform mapping CRS coordinates back to pixels.
func (a Affine) Invert() (Affine, error) {
	det := a[1]*a[5] - a[2]*a[4]
	if det == 0 {
		return Affine{}, fmt.Errorf("hexstat: geotransform %v is not invertible", a)
	}
	inv := Affine{0, a[5] / det, -a[2] / det, 0, -a[4] / det, a[1] / det}
	inv[0] = -a[0]*inv[1] - a[3]*inv[2]
	inv[3] = -a[0]*inv[4] - a[3]*inv[5]
	return inv, nil
}

// PixelSource gives random access to the pixels of a single-band raster.
type PixelSource interface {
	Size() (width, height int)
	Transform() Affine
	// ReadWindow returns width*height values in row-major order.
	ReadWindow(col, row, width, height int) ([]float64, error)
}

// Raster is an open single-band raster that supports windowed masked reads.
type Raster interface {
	// CRS is the native coordinate system; nil means EPSG:4326.
	CRS() *CRS
	NoData() (float64, bool)
	ReadMasked(poly orb.Polygon) (*Window, error)
	Close() error
}

// Window is a block of pixels cropped to a clip polygon's bounds.
type Window struct {
	Col, Row      int
	Width, Height int
	Transform     Affine // transform of the window's top-left pixel
	Data          []float64
}

// MaskedRead reads the pixels under poly, cropped to its bounding window.
// Pixels whose centre falls outside poly are replaced with fill. poly must
// be in the raster's CRS.
func MaskedRead(src PixelSource, poly orb.Polygon, fill float64) (*Window, error) {
	if len(poly) == 0 || len(poly[0]) < 4 || planar.Area(poly) == 0 {
		return nil, ErrDegenerateGeometry
	}

	width, height := src.Size()
	gt := src.Transform()
	inv, err := gt.Invert()
	if err != nil {
		return nil, err
	}

	b := poly.Bound()
	corners := []orb.Point{
		inv.Apply(b.Min[0], b.Min[1]),
		inv.Apply(b.Max[0], b.Min[1]),
		inv.Apply(b.Max[0], b.Max[1]),
		inv.Apply(b.Min[0], b.Max[1]),
	}
	px := orb.MultiPoint(corners).Bound()

	col0 := clampInt(int(math.Floor(px.Min[0])), 0, width)
	col1 := clampInt(int(math.Ceil(px.Max[0])), 0, width)
	row0 := clampInt(int(math.Floor(px.Min[1])), 0, height)
	row1 := clampInt(int(math.Ceil(px.Max[1])), 0, height)
	if col1 <= col0 || row1 <= row0 {
		return nil, ErrNoOverlap
	}

	w, h := col1-col0, row1-row0
	data, err := src.ReadWindow(col0, row0, w, h)
	if err != nil {
		return nil, err
	}
	if len(data) != w*h {
		return nil, fmt.Errorf("hexstat: window read returned %d values, want %d", len(data), w*h)
	}

	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			center := gt.Apply(float64(col0+c)+0.5, float64(row0+r)+0.5)
			if !b.Contains(center) || !planar.PolygonContains(poly, center) {
				data[r*w+c] = fill
			}
		}
	}

	origin := gt.Apply(float64(col0), float64(row0))
	return &Window{
		Col:       col0,
		Row:       row0,
		Width:     w,
		Height:    h,
		Transform: Affine{origin[0], gt[1], gt[2], origin[1], gt[4], gt[5]},
		Data:      data,
	}, nil
}

// fillValue is what masked pixels are set to: the nodata sentinel when
// one is declared, NaN otherwise.
func fillValue(r Raster) float64 {
	if nd, ok := r.NoData(); ok {
		return nd
	}
	return math.NaN()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Grid is an in-memory raster.
type Grid struct {
	width, height int
	transform     Affine
	values        []float64
	crs           *CRS
	nodata        float64
	hasNodata     bool
}

// NewGrid wraps row-major values as a raster of the given size.
func NewGrid(width, height int, transform Affine, values []float64) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("hexstat: invalid grid size %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("hexstat: grid has %d values, want %d", len(values), width*height)
	}
	if _, err := transform.Invert(); err != nil {
		return nil, err
	}
	return &Grid{
		width:     width,
		height:    height,
		transform: transform,
		values:    values,
	}, nil
}

// SetCRS sets the grid's coordinate system.
func (g *Grid) SetCRS(crs *CRS) *Grid {
	g.crs = crs
	return g
}

// SetNoData declares a nodata sentinel.
func (g *Grid) SetNoData(v float64) *Grid {
	g.nodata, g.hasNodata = v, true
	return g
}

func (g *Grid) Size() (int, int) { return g.width, g.height }

func (g *Grid) Transform() Affine { return g.transform }

func (g *Grid) CRS() *CRS { return g.crs }

func (g *Grid) NoData() (float64, bool) { return g.nodata, g.hasNodata }

func (g *Grid) Close() error { return nil }

// ReadWindow copies a block of the grid.
func (g *Grid) ReadWindow(col, row, width, height int) ([]float64, error) {
	if col < 0 || row < 0 || col+width > g.width || row+height > g.height {
		return nil, ErrNoOverlap
	}
	out := make([]float64, 0, width*height)
	for r := row; r < row+height; r++ {
		out = append(out, g.values[r*g.width+col:r*g.width+col+width]...)
	}
	return out, nil
}

// ReadMasked performs a windowed masked read on the grid.
func (g *Grid) ReadMasked(poly orb.Polygon) (*Window, error) {
	return MaskedRead(g, poly, fillValue(g))
}
