package main

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingold/hexstat"
	"github.com/tingold/hexstat/internal/metrics"
	"go.uber.org/zap"
)

func testServer(t *testing.T) *server {
	t.Helper()
	square := orb.Polygon{{{10, 45}, {10.3, 45}, {10.3, 45.3}, {10, 45.3}, {10, 45}}}
	cells, err := hexstat.Coverage(square, 6)
	require.NoError(t, err)
	require.NotEmpty(t, cells)

	results := make([]hexstat.StatResult, len(cells))
	for i, c := range cells {
		results[i] = hexstat.StatResult{Cell: c.String(), Resolution: 6, Value: float64(i), Pixels: 1}
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	s, err := newServer(results, collector, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestResultsCSV(t *testing.T) {
	s := testServer(t)
	resp, err := s.app().Test(httptest.NewRequest("GET", "/results.csv", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "h3,res,value\n")
}

func TestDataFGB(t *testing.T) {
	s := testServer(t)
	resp, err := s.app().Test(httptest.NewRequest("GET", "/data.fgb", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	reader, err := hexstat.NewReaderFromData(body)
	require.NoError(t, err)
	got, err := reader.ReadResults()
	require.NoError(t, err)
	assert.Len(t, got, len(s.results))
}

func TestChoroplethBBox(t *testing.T) {
	s := testServer(t)
	app := s.app()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/choropleth", nil))
	require.NoError(t, err)
	all := decodeFC(t, resp.Body)
	assert.Len(t, all.Features, len(s.results))

	resp, err = app.Test(httptest.NewRequest("GET", "/api/choropleth?bbox=-20,-20,-10,-10", nil))
	require.NoError(t, err)
	none := decodeFC(t, resp.Body)
	assert.Empty(t, none.Features)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/choropleth?bbox=10.1,45.1,10.2,45.2", nil))
	require.NoError(t, err)
	some := decodeFC(t, resp.Body)
	assert.NotEmpty(t, some.Features)
	assert.Less(t, len(some.Features), len(s.results))
}

func TestChoroplethBadBBox(t *testing.T) {
	s := testServer(t)
	for _, q := range []string{"1,2,3", "a,b,c,d", "5,5,1,1"} {
		resp, err := s.app().Test(httptest.NewRequest("GET", "/api/choropleth?bbox="+q, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, q)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t)
	s.collector.ObserveCell(hexstat.OutcomeEmitted)

	resp, err := s.app().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hexstat_cells_total")
}

func TestEmptyResults(t *testing.T) {
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	s, err := newServer(nil, collector, zap.NewNop())
	require.NoError(t, err)

	resp, err := s.app().Test(httptest.NewRequest("GET", "/data.fgb", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}

func decodeFC(t *testing.T, r io.Reader) *geojson.FeatureCollection {
	t.Helper()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	fc := geojson.NewFeatureCollection()
	require.NoError(t, json.Unmarshal(body, fc))
	return fc
}

func TestNoStaticRoot(t *testing.T) {
	s := testServer(t)
	resp, err := s.app().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
