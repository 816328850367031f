package hexstat

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"
)

// Outcome classifies what happened to a candidate cell.
type Outcome string

// Cell outcomes reported to an Observer.
const (
	OutcomeEmitted        Outcome = "emitted"
	OutcomeNoIntersection Outcome = "no_intersection"
	OutcomeReadFailed     Outcome = "read_failed"
	OutcomeNoValidPixels  Outcome = "no_valid_pixels"
	OutcomeBadCell        Outcome = "bad_cell"
)

// Observer receives one call per candidate cell.
type Observer interface {
	ObserveCell(Outcome)
}

// RunStats counts cell outcomes for a single aggregation.
type RunStats struct {
	Candidates int
	Counts     map[Outcome]int
}

// Skipped is the number of candidates that produced no result.
func (s RunStats) Skipped() int {
	return s.Candidates - s.Counts[OutcomeEmitted]
}

// Aggregator computes per-cell raster statistics.
type Aggregator struct {
	opts        Options
	reprojector *Reprojector
	logger      *zap.Logger
	observer    Observer
	stats       RunStats
}

// NewAggregator validates opts and returns an Aggregator. An unknown
// statistic fails here, before any cell is processed.
func NewAggregator(opts *Options, logger *zap.Logger) (*Aggregator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	stat, err := ParseStat(string(opts.Stat))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := *opts
	o.Stat = stat
	return &Aggregator{
		opts:        o,
		reprojector: defaultReprojector,
		logger:      logger,
	}, nil
}

// WithObserver attaches an observer for per-cell outcomes.
func (a *Aggregator) WithObserver(o Observer) *Aggregator {
	a.observer = o
	return a
}

// Stats returns the outcome counts of the last Aggregate call.
func (a *Aggregator) Stats() RunStats {
	return a.stats
}

// Aggregate computes the configured statistic for every candidate cell.
// region is in EPSG:4326. Cells that do not intersect the region in raster
// space, cannot be read or have no valid pixel are left out of the result.
// Only context cancellation and region reprojection errors are returned.
func (a *Aggregator) Aggregate(ctx context.Context, raster Raster, cells []h3.Cell, region orb.Geometry) ([]StatResult, error) {
	a.stats = RunStats{Candidates: len(cells), Counts: make(map[Outcome]int)}
	if len(cells) == 0 || isEmpty(region) {
		a.stats.Candidates = 0
		return []StatResult{}, nil
	}

	rasterCRS := raster.CRS()
	if rasterCRS == nil {
		rasterCRS = WGS84()
	}
	nodata, hasNodata := raster.NoData()

	regionNative, err := a.reprojector.Reproject(region, WGS84(), rasterCRS)
	if err != nil {
		return nil, fmt.Errorf("hexstat: reprojecting region to %s: %w", rasterCRS, err)
	}

	a.logger.Debug("aggregating cells",
		zap.Int("candidates", len(cells)),
		zap.String("raster_crs", rasterCRS.String()),
		zap.String("stat", a.opts.Stat.String()),
		zap.Bool("has_nodata", hasNodata),
	)

	results := make([]StatResult, 0, len(cells))
	for _, cell := range cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, outcome := a.aggregateCell(raster, cell, rasterCRS, regionNative, nodata, hasNodata)
		a.record(outcome)
		if outcome == OutcomeEmitted {
			results = append(results, res)
		}
	}

	a.logger.Info("aggregation finished",
		zap.Int("candidates", a.stats.Candidates),
		zap.Int("emitted", a.stats.Counts[OutcomeEmitted]),
		zap.Int("skipped", a.stats.Skipped()),
	)
	return results, nil
}

// Aggregate is the one-shot form of Aggregator.Aggregate.
func Aggregate(ctx context.Context, raster Raster, cells []h3.Cell, region orb.Geometry, stat Stat) ([]StatResult, error) {
	a, err := NewAggregator(&Options{Stat: stat}, nil)
	if err != nil {
		return nil, err
	}
	return a.Aggregate(ctx, raster, cells, region)
}

func (a *Aggregator) aggregateCell(raster Raster, cell h3.Cell, rasterCRS *CRS, regionNative orb.Geometry, nodata float64, hasNodata bool) (StatResult, Outcome) {
	poly, err := CellPolygon(cell)
	if err != nil {
		return StatResult{}, OutcomeBadCell
	}

	native, err := a.reprojector.Reproject(poly, WGS84(), rasterCRS)
	if err != nil {
		return StatResult{}, OutcomeBadCell
	}
	nativePoly, ok := native.(orb.Polygon)
	if !ok {
		return StatResult{}, OutcomeBadCell
	}

	if !a.opts.SkipIntersectionCheck && !intersects(nativePoly, regionNative) {
		return StatResult{}, OutcomeNoIntersection
	}

	win, err := raster.ReadMasked(nativePoly)
	if err != nil {
		return StatResult{}, OutcomeReadFailed
	}

	valid := validPixels(win.Data, nodata, hasNodata)
	value, ok := a.opts.Stat.compute(valid)
	if !ok {
		return StatResult{}, OutcomeNoValidPixels
	}

	return StatResult{
		Cell:       cell.String(),
		Resolution: cell.Resolution(),
		Value:      value,
		Pixels:     len(valid),
	}, OutcomeEmitted
}

func (a *Aggregator) record(o Outcome) {
	a.stats.Counts[o]++
	if a.observer != nil {
		a.observer.ObserveCell(o)
	}
}
