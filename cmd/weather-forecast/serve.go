package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-forecast/internal/api/http"
	"github.com/i474232898/weather-forecast/internal/metrics"
	"github.com/i474232898/weather-forecast/internal/scheduler"
	"github.com/i474232898/weather-forecast/internal/store"
	"github.com/i474232898/weather-forecast/internal/weather"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the configured locations and serve forecasts over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	cache, err := store.NewDiskCache(cfg.CacheDir, logger)
	if err != nil {
		return err
	}
	svc := newService(cfg, store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge), cache, recorder)

	for _, loc := range cfg.Locations {
		if _, err := svc.AddLocation(ctx, loc); err != nil {
			logger.Warn("skipping configured location", zap.String("location", loc.ID), zap.String("city", loc.City), zap.Error(err))
		}
	}
	if _, err := svc.LoadCache(); err != nil {
		logger.Warn("failed to load forecast cache", zap.Error(err))
	}

	if cfg.WatchCache {
		watcher, err := store.NewCacheWatcher(cache.Dir(), func(f weather.Forecast) {
			svc.ApplyCached(f)
		}, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("watch cache dir: %w", err)
		}
		defer watcher.Stop()
	}

	sched := scheduler.New(svc, logger)
	if err := sched.Start(svc.Locations()); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app, err := httpapi.NewApp(httpapi.Options{
		Service:  svc,
		Tracker:  sched,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()
	logger.Info("server started",
		zap.String("port", cfg.Port),
		zap.Int("locations", len(svc.Locations())),
		zap.String("cache_dir", cache.Dir()),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
