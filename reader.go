package hexstat

import (
	"errors"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// ErrNoIndex is returned for FlatGeobuf files written without a spatial
// index. The underlying library can only enumerate features through it.
var ErrNoIndex = errors.New("hexstat: flatgeobuf file has no spatial index")

// Reader provides read access to a FlatGeobuf file, either a region mask
// or a result file written by FlatGeobufSink.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// Header summarises a FlatGeobuf file.
type Header struct {
	Name          string
	FeaturesCount uint64
	Envelope      orb.Bound
	CRS           *CRS
	HasIndex      bool
}

// NewReader creates a reader from a file path.
// The file is memory-mapped for efficient access.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return &Reader{fgb: fgb}, nil
}

// NewReaderFromData creates a reader from byte data.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &Reader{fgb: fgb}, nil
}

// Header returns metadata about the file.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}
	if h.EnvelopeLength() >= 4 {
		header.Envelope = orb.Bound{
			Min: orb.Point{h.Envelope(0), h.Envelope(1)},
			Max: orb.Point{h.Envelope(2), h.Envelope(3)},
		}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{Code: int(crs.Code()), Name: string(crs.Name())}
		if known, err := LookupEPSG(header.CRS.Code); err == nil {
			header.CRS.Proj4 = known.Proj4
		}
	}
	return header
}

// features returns every feature through a search over the full envelope.
func (r *Reader) features() ([]*flattypes.Feature, *flattypes.Header, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, h, ErrNoIndex
	}
	if h.FeaturesCount() == 0 || h.EnvelopeLength() < 4 {
		return nil, h, nil
	}

	features, err := r.fgb.Search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
	if err != nil {
		return nil, h, err
	}
	return features, h, nil
}

// ReadGeometries reads the polygonal geometries of all features.
func (r *Reader) ReadGeometries() ([]orb.Geometry, error) {
	features, _, err := r.features()
	if err != nil {
		return nil, err
	}

	geometries := make([]orb.Geometry, 0, len(features))
	for _, f := range features {
		if g := featureGeometry(f); g != nil {
			geometries = append(geometries, g)
		}
	}
	return geometries, nil
}

// ReadResults reads the statistics stored in a result file.
func (r *Reader) ReadResults() ([]StatResult, error) {
	features, h, err := r.features()
	if err != nil {
		return nil, err
	}

	results := make([]StatResult, 0, len(features))
	for _, f := range features {
		props := decodeProperties(featureProperties(f), h)
		if res, ok := resultFromProperties(props); ok {
			results = append(results, res)
		}
	}
	SortResults(results)
	return results, nil
}

// Close releases resources associated with the reader.
func (r *Reader) Close() error {
	// FlatGeoBuf has no Close; dropping the reference lets the mapping be
	// collected.
	r.fgb = nil
	return nil
}

// ReadResultsFGB reads a result file from disk.
func ReadResultsFGB(path string) ([]StatResult, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadResults()
}

func featureGeometry(f *flattypes.Feature) orb.Geometry {
	if f == nil {
		return nil
	}
	var geomObj flattypes.Geometry
	geom := f.Geometry(&geomObj)
	if geom == nil {
		return nil
	}
	return geometryFromFGB(geom)
}

func featureProperties(f *flattypes.Feature) []byte {
	n := f.PropertiesLength()
	if n == 0 {
		return nil
	}
	data := make([]byte, n)
	for i := 0; i < n; i++ {
		data[i] = byte(f.Properties(i))
	}
	return data
}
