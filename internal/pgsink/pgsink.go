// Package pgsink stores hexstat results in PostgreSQL.
package pgsink

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tingold/hexstat"
	"go.uber.org/zap"
)

// Table is the results table. A dataset holds one row per cell; rerunning
// a dataset replaces the values of the cells it produces.
const Table = "h3_raster_stats"

const createTable = `
	CREATE TABLE IF NOT EXISTS h3_raster_stats (
		run_id  uuid             NOT NULL,
		dataset text             NOT NULL,
		h3      text             NOT NULL,
		res     integer          NOT NULL,
		value   double precision NOT NULL,
		pixels  bigint           NOT NULL,
		PRIMARY KEY (dataset, h3)
	)`

const createStaging = `
	CREATE TEMP TABLE h3_raster_stats_staging (
		run_id  uuid,
		dataset text,
		h3      text,
		res     integer,
		value   double precision,
		pixels  bigint
	) ON COMMIT DROP`

const mergeStaging = `
	INSERT INTO h3_raster_stats (run_id, dataset, h3, res, value, pixels)
	SELECT run_id, dataset, h3, res, value, pixels FROM h3_raster_stats_staging
	ON CONFLICT (dataset, h3) DO UPDATE
	SET run_id = EXCLUDED.run_id, res = EXCLUDED.res,
	    value = EXCLUDED.value, pixels = EXCLUDED.pixels`

var columns = []string{"run_id", "dataset", "h3", "res", "value", "pixels"}

// Sink implements hexstat.Sink on a pgx pool.
type Sink struct {
	pool    *pgxpool.Pool
	runID   uuid.UUID
	dataset string
	logger  *zap.Logger
}

// New connects to dsn, checks the connection and makes sure the results
// table exists.
func New(ctx context.Context, dsn, dataset string, runID uuid.UUID, logger *zap.Logger) (*Sink, error) {
	if dataset == "" {
		return nil, fmt.Errorf("%w: dataset is required", hexstat.ErrConfiguration)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", hexstat.ErrConfiguration, err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgsink: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgsink: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgsink: create table: %w", err)
	}

	return &Sink{pool: pool, runID: runID, dataset: dataset, logger: logger}, nil
}

// Write copies results into a staging table and merges them into Table in
// one transaction.
func (s *Sink) Write(ctx context.Context, results []hexstat.StatResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgsink: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createStaging); err != nil {
		return fmt.Errorf("pgsink: staging table: %w", err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"h3_raster_stats_staging"}, columns,
		pgx.CopyFromRows(s.rows(results)))
	if err != nil {
		return fmt.Errorf("pgsink: copy: %w", err)
	}
	tag, err := tx.Exec(ctx, mergeStaging)
	if err != nil {
		return fmt.Errorf("pgsink: merge: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgsink: commit: %w", err)
	}

	s.logger.Info("results stored",
		zap.String("dataset", s.dataset),
		zap.String("table", Table),
		zap.Int64("copied", n),
		zap.Int64("upserted", tag.RowsAffected()),
	)
	return nil
}

func (s *Sink) rows(results []hexstat.StatResult) [][]any {
	rows := make([][]any, len(results))
	for i, r := range results {
		rows[i] = []any{s.runID, s.dataset, r.Cell, int32(r.Resolution), r.Value, int64(r.Pixels)}
	}
	return rows
}

// Close releases the pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
