package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"newsdigest/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run ticks on the configured cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		expr, err := cronexpr.Parse(cfg.Schedule.Cron)
		if err != nil {
			return fmt.Errorf("invalid schedule.cron %q: %w", cfg.Schedule.Cron, err)
		}

		// Create context that listens for interrupt signals
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		a, err := newApp(ctx, cfg, log, reg)
		if err != nil {
			return err
		}
		defer a.Close()

		if badger, ok := a.store.(*storage.BadgerStore); ok {
			go badger.RunGC(ctx, cfg.Store.GCInterval)
		}

		var srv *http.Server
		if cfg.Metrics.Addr != "" {
			srv = serveMetrics(cfg.Metrics.Addr, reg)
		}

		log.WithField("cron", cfg.Schedule.Cron).Info("newsdigest is running. Press Ctrl+C to exit.")
		loop(ctx, expr, a)

		// --- Graceful Shutdown ---
		log.Info("Shutting down newsdigest...")
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("Metrics server shutdown failed")
			}
		}
		log.Info("newsdigest shut down gracefully.")
		return nil
	},
}

// loop fires a tick at every cron occurrence until ctx is cancelled.
func loop(ctx context.Context, expr *cronexpr.Expression, a *app) {
	for {
		now := time.Now()
		next := expr.Next(now)
		if next.IsZero() {
			log.Warn("Cron expression has no future occurrences")
			<-ctx.Done()
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			runTick(ctx, a, fired)
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	return srv
}
