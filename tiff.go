package hexstat

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/image/tiff"
)

// RasterOptions overrides metadata a raster file may lack or get wrong.
type RasterOptions struct {
	CRS    *CRS     // native CRS; nil keeps the file's (or EPSG:4326)
	NoData *float64 // nodata sentinel; nil keeps the file's
}

// gdalOpener is set when the package is built with the gdal tag.
var gdalOpener func(path string, opts *RasterOptions) (Raster, error)

// OpenRaster opens a single-band raster. GDAL is used when available,
// otherwise the file must be a grayscale TIFF with a world file.
func OpenRaster(path string, opts *RasterOptions) (Raster, error) {
	if opts == nil {
		opts = &RasterOptions{}
	}
	if gdalOpener != nil {
		return gdalOpener(path, opts)
	}
	return OpenTIFF(path, opts)
}

// OpenTIFF reads a grayscale TIFF and georeferences it with the ESRI world
// file next to it (.tfw, .tifw or .wld).
func OpenTIFF(path string, opts *RasterOptions) (*Grid, error) {
	if opts == nil {
		opts = &RasterOptions{}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}

	values, width, height, err := grayValues(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}

	worldPath, err := findWorldFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}
	gt, err := ReadWorldFile(worldPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}

	g, err := NewGrid(width, height, gt, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}
	g.SetCRS(opts.CRS)
	if opts.NoData != nil {
		g.SetNoData(*opts.NoData)
	}
	return g, nil
}

func grayValues(img image.Image) ([]float64, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	values := make([]float64, 0, w*h)

	switch im := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(im.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(im.Gray16At(x, y).Y))
			}
		}
	default:
		return nil, 0, 0, fmt.Errorf("unsupported pixel layout %T, want 8/16-bit unsigned grayscale (build with -tags gdal for other rasters)", img)
	}
	return values, w, h, nil
}

func findWorldFile(path string) (string, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".tfw", ".tifw", ".wld", ".TFW"} {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no world file next to %s", path)
}

// ReadWorldFile parses an ESRI world file into a geotransform. World files
// reference pixel centres; the geotransform references pixel corners.
func ReadWorldFile(path string) (Affine, error) {
	f, err := os.Open(path)
	if err != nil {
		return Affine{}, err
	}
	defer f.Close()

	var v []float64
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		x, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Affine{}, fmt.Errorf("world file %s: %w", path, err)
		}
		v = append(v, x)
	}
	if err := s.Err(); err != nil {
		return Affine{}, err
	}
	if len(v) != 6 {
		return Affine{}, fmt.Errorf("world file %s: want 6 values, got %d", path, len(v))
	}

	// A, D, B, E, C, F
	a, d, b, e, c, f6 := v[0], v[1], v[2], v[3], v[4], v[5]
	corner := orb.Point{c - a/2 - b/2, f6 - d/2 - e/2}
	return Affine{corner[0], a, b, corner[1], d, e}, nil
}
