package hexstat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config is everything a run needs. Build it once, call Validate, then
// pass it to Run.
type Config struct {
	MaskPath   string // region mask (GeoJSON, FlatGeobuf or WKT, EPSG:4326)
	RasterPath string // single-band raster
	Resolution int    // H3 resolution, default 8
	Stat       Stat   // mean or sum, default mean

	RasterCRS *CRS     // overrides the raster's own CRS
	NoData    *float64 // overrides the raster's nodata sentinel

	SkipIntersectionCheck bool

	// RollupResolution, when set, also aggregates results to parents at
	// this coarser resolution.
	RollupResolution *int

	// RunID tags the run in logs and sinks. A new one is generated when unset.
	RunID uuid.UUID
}

// Validate checks the configuration and fills defaults. It is meant to run
// once at startup, before any input is read.
func (c *Config) Validate() error {
	if c.MaskPath == "" {
		return fmt.Errorf("%w: mask path is required", ErrConfiguration)
	}
	if c.RasterPath == "" {
		return fmt.Errorf("%w: raster path is required", ErrConfiguration)
	}
	if c.Stat == "" {
		c.Stat = StatMean
	}
	stat, err := ParseStat(string(c.Stat))
	if err != nil {
		return err
	}
	c.Stat = stat
	if err := validateResolution(c.Resolution); err != nil {
		return err
	}
	if c.RasterCRS != nil {
		if err := c.RasterCRS.Validate(); err != nil {
			return err
		}
	}
	if c.RollupResolution != nil {
		if err := validateResolution(*c.RollupResolution); err != nil {
			return err
		}
		if *c.RollupResolution > c.Resolution {
			return fmt.Errorf("%w: rollup resolution %d is finer than resolution %d",
				ErrConfiguration, *c.RollupResolution, c.Resolution)
		}
	}
	return nil
}

// Report describes a finished run.
type Report struct {
	RunID    uuid.UUID
	Cells    int          // candidate cells from coverage
	Results  []StatResult // sorted by cell id
	Rollup   []StatResult // parents, when RollupResolution is set
	Stats    RunStats
	Duration time.Duration
}

// Run executes the whole pipeline: load the region, cover it with cells,
// aggregate the raster and hand the results to every sink. Sinks are not
// closed. Any error is fatal and no partial results are returned.
func Run(ctx context.Context, cfg *Config, logger *zap.Logger, observer Observer, sinks ...Sink) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	if cfg.RunID == uuid.Nil {
		cfg.RunID = uuid.New()
	}
	report := &Report{RunID: cfg.RunID}
	logger = logger.With(zap.String("run_id", report.RunID.String()))

	agg, err := NewAggregator(&Options{
		Stat:                  cfg.Stat,
		SkipIntersectionCheck: cfg.SkipIntersectionCheck,
	}, logger)
	if err != nil {
		return nil, err
	}
	if observer != nil {
		agg.WithObserver(observer)
	}

	region, err := LoadRegion(cfg.MaskPath)
	if err != nil {
		return nil, err
	}
	logger.Info("region loaded",
		zap.String("mask", cfg.MaskPath),
		zap.String("type", region.GeoJSONType()),
		zap.Bool("empty", isEmpty(region)),
	)

	cells, err := Coverage(region, cfg.Resolution)
	if err != nil {
		return nil, err
	}
	report.Cells = len(cells)
	logger.Info("coverage computed",
		zap.Int("resolution", cfg.Resolution),
		zap.Int("cells", len(cells)),
	)

	raster, err := OpenRaster(cfg.RasterPath, &RasterOptions{CRS: cfg.RasterCRS, NoData: cfg.NoData})
	if err != nil {
		return nil, err
	}
	defer raster.Close()

	results, err := agg.Aggregate(ctx, raster, cells, region)
	if err != nil {
		return nil, err
	}
	SortResults(results)
	report.Results = results
	report.Stats = agg.Stats()

	if cfg.RollupResolution != nil {
		report.Rollup, err = Rollup(results, *cfg.RollupResolution, cfg.Stat)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range sinks {
		if err := s.Write(ctx, results); err != nil {
			return nil, fmt.Errorf("hexstat: writing results: %w", err)
		}
	}

	report.Duration = time.Since(start)
	logger.Info("run finished",
		zap.Int("results", len(results)),
		zap.Int("rollup", len(report.Rollup)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
