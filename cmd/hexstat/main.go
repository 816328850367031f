// Command hexstat aggregates a single-band raster onto the H3 grid inside a
// region mask and writes one row per cell.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/tingold/hexstat"
	"github.com/tingold/hexstat/internal/config"
	"github.com/tingold/hexstat/internal/logger"
	"github.com/tingold/hexstat/internal/metrics"
	"github.com/tingold/hexstat/internal/pgsink"
	"github.com/tingold/hexstat/internal/preview"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "hexstat: %v\n", err)
		os.Exit(2)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hexstat: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("run failed", zap.Error(err))
		log.Sync()
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (err error) {
	pc, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	pc.RunID = uuid.New()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}
	if cfg.MetricsFile != "" {
		defer func() {
			if werr := collector.WriteFile(cfg.MetricsFile); werr != nil {
				log.Warn("failed to write metrics", zap.String("path", cfg.MetricsFile), zap.Error(werr))
			}
		}()
	}

	sinks, err := openSinks(ctx, cfg, pc.RunID, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output: %w", cerr)
			}
		}
	}()

	start := time.Now()
	report, err := hexstat.Run(ctx, pc, log, collector, sinks...)
	if err != nil {
		collector.ObserveDuration(time.Since(start))
		return err
	}
	collector.ObserveReport(report)

	if len(report.Results) == 0 {
		log.Warn("no cell produced a value",
			zap.Int("candidates", report.Cells),
			zap.Int("skipped", report.Stats.Skipped()),
		)
	}

	if pc.RollupResolution != nil {
		path := rollupPath(cfg.Out, *pc.RollupResolution)
		if err := writeRollup(ctx, path, report.Rollup); err != nil {
			return err
		}
		log.Info("rollup written", zap.String("path", path), zap.Int("cells", len(report.Rollup)))
	}

	if cfg.Preview != "" {
		if len(report.Results) == 0 {
			log.Warn("skipping preview of empty results", zap.String("path", cfg.Preview))
		} else if err := preview.SavePNG(cfg.Preview, report.Results, nil); err != nil {
			return err
		}
	}

	log.Info("results written",
		zap.String("out", cfg.Out),
		zap.Int("results", len(report.Results)),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

func openSinks(ctx context.Context, cfg *config.Config, runID uuid.UUID, log *zap.Logger) ([]hexstat.Sink, error) {
	format, err := cfg.OutputFormat()
	if err != nil {
		return nil, err
	}
	file, err := hexstat.NewFileSink(format, cfg.Out)
	if err != nil {
		return nil, err
	}
	sinks := []hexstat.Sink{file}

	if cfg.PGDSN != "" {
		pg, err := pgsink.New(ctx, cfg.PGDSN, cfg.Dataset, runID, log)
		if err != nil {
			file.Close()
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	return sinks, nil
}

// rollupPath derives the rollup file from the main output, e.g.
// out.csv at rollup resolution 6 becomes out_r6.csv.
func rollupPath(out string, res int) string {
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s_r%d.csv", strings.TrimSuffix(out, ext), res)
}

func writeRollup(ctx context.Context, path string, results []hexstat.StatResult) error {
	sink, err := hexstat.NewFileSink(hexstat.FormatCSV, path)
	if err != nil {
		return err
	}
	if err := sink.Write(ctx, results); err != nil {
		sink.Close()
		return err
	}
	return sink.Close()
}
