//go:build gdal

package hexstat

import (
	"fmt"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
)

func init() {
	godal.RegisterAll()
	gdalOpener = func(path string, opts *RasterOptions) (Raster, error) {
		return OpenGDAL(path, opts)
	}
}

// GDALRaster is a raster backed by a GDAL dataset. Only band 1 is read.
type GDALRaster struct {
	ds        *godal.Dataset
	band      godal.Band
	width     int
	height    int
	transform Affine
	crs       *CRS
	nodata    float64
	hasNodata bool
}

// OpenGDAL opens any raster GDAL can read. The CRS comes from the EPSG
// authority code of the dataset's spatial reference, or EPSG:4326 when it
// cannot be determined.
func OpenGDAL(path string, opts *RasterOptions) (*GDALRaster, error) {
	if opts == nil {
		opts = &RasterOptions{}
	}

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}

	st := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 {
		ds.Close()
		return nil, fmt.Errorf("%w: %s: no raster bands", ErrRasterAccess, path)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrRasterAccess, path, err)
	}

	r := &GDALRaster{
		ds:        ds,
		band:      bands[0],
		width:     st.SizeX,
		height:    st.SizeY,
		transform: Affine(gt),
		crs:       opts.CRS,
	}

	if r.crs == nil {
		r.crs = datasetCRS(ds)
	}
	if opts.NoData != nil {
		r.nodata, r.hasNodata = *opts.NoData, true
	} else {
		r.nodata, r.hasNodata = r.band.NoData()
	}
	return r, nil
}

func datasetCRS(ds *godal.Dataset) *CRS {
	sr := ds.SpatialRef()
	if sr == nil {
		return WGS84()
	}
	defer sr.Close()

	code, err := strconv.Atoi(sr.AuthorityCode(""))
	if err != nil {
		return WGS84()
	}
	crs, err := LookupEPSG(code)
	if err != nil {
		return WGS84()
	}
	return crs
}

func (r *GDALRaster) Size() (int, int) { return r.width, r.height }

func (r *GDALRaster) Transform() Affine { return r.transform }

func (r *GDALRaster) CRS() *CRS { return r.crs }

func (r *GDALRaster) NoData() (float64, bool) { return r.nodata, r.hasNodata }

// ReadWindow reads a block of band 1 as float64.
func (r *GDALRaster) ReadWindow(col, row, width, height int) ([]float64, error) {
	buf := make([]float64, width*height)
	if err := r.band.Read(col, row, buf, width, height); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadMasked performs a windowed masked read on band 1.
func (r *GDALRaster) ReadMasked(poly orb.Polygon) (*Window, error) {
	return MaskedRead(r, poly, fillValue(r))
}

// Close releases the dataset.
func (r *GDALRaster) Close() error {
	if r.ds == nil {
		return nil
	}
	err := r.ds.Close()
	r.ds = nil
	return err
}
