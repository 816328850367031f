// Package preview renders results as a PNG choropleth of hexagons.
package preview

import (
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/paulmach/orb"
	"github.com/tingold/hexstat"
)

// Options control the rendered image.
type Options struct {
	Width      int
	Height     int
	Padding    float64
	Background string // hex colour
	Outline    bool
}

// DefaultOptions returns a 1024x1024 image on a white background.
func DefaultOptions() *Options {
	return &Options{
		Width:      1024,
		Height:     1024,
		Padding:    16,
		Background: "#ffffff",
	}
}

// ramp runs from low (dark blue) to high (yellow).
var ramp = [][3]float64{
	{0.267, 0.005, 0.329},
	{0.230, 0.322, 0.546},
	{0.128, 0.567, 0.551},
	{0.369, 0.789, 0.383},
	{0.993, 0.906, 0.144},
}

// Color maps t in [0,1] onto the ramp.
func Color(t float64) (r, g, b float64) {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(ramp)-1)
	i := int(pos)
	if i >= len(ramp)-1 {
		c := ramp[len(ramp)-1]
		return c[0], c[1], c[2]
	}
	f := pos - float64(i)
	a, z := ramp[i], ramp[i+1]
	return a[0] + (z[0]-a[0])*f, a[1] + (z[1]-a[1])*f, a[2] + (z[2]-a[2])*f
}

type cellShape struct {
	ring  orb.Ring
	value float64
}

// Draw renders results onto a new context. The caller closes it.
func Draw(results []hexstat.StatResult, opts *Options) (*gg.Context, error) {
	if len(results) == 0 {
		return nil, hexstat.ErrEmptyResults
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: preview size %dx%d", hexstat.ErrConfiguration, opts.Width, opts.Height)
	}

	shapes := make([]cellShape, 0, len(results))
	var bound orb.Bound
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range results {
		cell, err := hexstat.ParseCell(r.Cell)
		if err != nil {
			return nil, err
		}
		poly, err := hexstat.CellPolygon(cell)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, cellShape{ring: poly[0], value: r.Value})
		if len(shapes) == 1 {
			bound = poly.Bound()
		} else {
			bound = bound.Union(poly.Bound())
		}
		lo = math.Min(lo, r.Value)
		hi = math.Max(hi, r.Value)
	}

	// Equirectangular, with longitudes shrunk by the cosine of the centre
	// latitude so hexagons keep their shape.
	kx := math.Cos(bound.Center().Lat() * math.Pi / 180)
	w := (bound.Right() - bound.Left()) * kx
	h := bound.Top() - bound.Bottom()
	availW := float64(opts.Width) - 2*opts.Padding
	availH := float64(opts.Height) - 2*opts.Padding
	scale := math.Min(availW/math.Max(w, 1e-12), availH/math.Max(h, 1e-12))
	offX := opts.Padding + (availW-w*scale)/2
	offY := opts.Padding + (availH-h*scale)/2

	project := func(p orb.Point) (float64, float64) {
		x := offX + (p.Lon()-bound.Min.Lon())*kx*scale
		y := offY + (bound.Max.Lat()-p.Lat())*scale
		return x, y
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	if opts.Background != "" {
		dc.ClearWithColor(gg.Hex(opts.Background))
	}
	dc.SetLineWidth(0.5)

	for _, s := range shapes {
		t := 0.5
		if hi > lo {
			t = (s.value - lo) / (hi - lo)
		}
		dc.SetRGB(Color(t))

		for i, p := range s.ring {
			x, y := project(p)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()

		if !opts.Outline {
			if err := dc.Fill(); err != nil {
				dc.Close()
				return nil, fmt.Errorf("preview: fill: %w", err)
			}
			continue
		}
		if err := dc.FillPreserve(); err != nil {
			dc.Close()
			return nil, fmt.Errorf("preview: fill: %w", err)
		}
		dc.SetRGBA(0, 0, 0, 0.4)
		if err := dc.Stroke(); err != nil {
			dc.Close()
			return nil, fmt.Errorf("preview: stroke: %w", err)
		}
	}
	return dc, nil
}

// SavePNG renders results to a PNG file at path.
func SavePNG(path string, results []hexstat.StatResult, opts *Options) error {
	dc, err := Draw(results, opts)
	if err != nil {
		return err
	}
	defer dc.Close()
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("preview: saving %s: %w", path, err)
	}
	return nil
}

// WritePNG renders results as PNG to w.
func WritePNG(w io.Writer, results []hexstat.StatResult, opts *Options) error {
	dc, err := Draw(results, opts)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}
