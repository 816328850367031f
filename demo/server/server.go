package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/paulmach/orb"
	"github.com/tingold/hexstat"
	"github.com/tingold/hexstat/internal/metrics"
	"github.com/tingold/hexstat/internal/preview"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

type cellEntry struct {
	result hexstat.StatResult
	bound  orb.Bound
}

type server struct {
	cells     []cellEntry
	results   []hexstat.StatResult
	fgb       []byte
	csv       []byte
	collector *metrics.Collector
	log       *zap.Logger
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// newServer encodes the results once; every request is served from memory.
func newServer(results []hexstat.StatResult, collector *metrics.Collector, log *zap.Logger) (*server, error) {
	s := &server{results: results, collector: collector, log: log}

	for _, r := range results {
		cell, err := hexstat.ParseCell(r.Cell)
		if err != nil {
			return nil, err
		}
		poly, err := hexstat.CellPolygon(cell)
		if err != nil {
			return nil, err
		}
		s.cells = append(s.cells, cellEntry{result: r, bound: poly.Bound()})
	}

	var csvBuf bytes.Buffer
	sink, err := hexstat.NewCSVSink(nopCloser{&csvBuf})
	if err != nil {
		return nil, err
	}
	if err := sink.Write(context.Background(), results); err != nil {
		return nil, err
	}
	if err := sink.Close(); err != nil {
		return nil, err
	}
	s.csv = csvBuf.Bytes()

	if len(results) > 0 {
		var fgbBuf bytes.Buffer
		opts := hexstat.DefaultFGBOptions()
		opts.Name = "hexstat_results"
		opts.Description = "Raster statistics per H3 cell"
		if err := hexstat.WriteResultsFGB(&fgbBuf, results, opts); err != nil {
			return nil, err
		}
		s.fgb = fgbBuf.Bytes()
	}

	log.Info("results ready",
		zap.Int("cells", len(results)),
		zap.Int("fgb_bytes", len(s.fgb)),
		zap.Int("csv_bytes", len(s.csv)),
	)
	return s, nil
}

func (s *server) app() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "hexstat demo",
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/data.fgb", s.handleFGB)
	app.Get("/results.csv", s.handleCSV)
	app.Get("/preview.png", s.handlePreview)
	app.Get("/api/choropleth", s.handleChoropleth)
	app.Get("/metrics", s.handleMetrics)
	return app
}

func (s *server) handleFGB(c *fiber.Ctx) error {
	if len(s.fgb) == 0 {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	c.Set(fiber.HeaderContentType, "application/octet-stream")
	return c.Send(s.fgb)
}

func (s *server) handleCSV(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(s.csv)
}

func (s *server) handlePreview(c *fiber.Ctx) error {
	if len(s.results) == 0 {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, s.results, nil); err != nil {
		s.log.Error("preview failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "preview failed"})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// GET /api/choropleth?bbox=minLon,minLat,maxLon,maxLat
func (s *server) handleChoropleth(c *fiber.Ctx) error {
	results := s.results
	if raw := c.Query("bbox"); raw != "" {
		bbox, err := parseBBox(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		results = make([]hexstat.StatResult, 0)
		for _, e := range s.cells {
			if e.bound.Intersects(bbox) {
				results = append(results, e.result)
			}
		}
	}

	c.Set(fiber.HeaderContentType, "application/geo+json")
	data, err := hexstat.ResultsFeatureCollection(results).MarshalJSON()
	if err != nil {
		return err
	}
	return c.Send(data)
}

func (s *server) handleMetrics(c *fiber.Ctx) error {
	fasthttpadaptor.NewFastHTTPHandler(s.collector.Handler())(c.Context())
	return nil
}

func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs 4 values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bbox value %q", p)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox min exceeds max")
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
