package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/tingold/hexstat"
	"github.com/tingold/hexstat/internal/config"
	"github.com/tingold/hexstat/internal/logger"
	"github.com/tingold/hexstat/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pc, err := cfg.Pipeline()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := hexstat.Run(ctx, pc, log, collector)
	if err != nil {
		log.Fatal("aggregation failed", zap.Error(err))
	}
	collector.ObserveReport(report)

	srv, err := newServer(report.Results, collector, log)
	if err != nil {
		log.Fatal("failed to prepare results", zap.Error(err))
	}

	app := srv.app()

	addr := os.Getenv("HEXSTAT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	go func() {
		log.Info("server starting", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
