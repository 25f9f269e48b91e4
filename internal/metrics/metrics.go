// Package metrics exposes Prometheus instrumentation for watch cycles.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// CyclesTotal counts finished watch cycles per service and status.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcwatch_cycles_total",
			Help: "Total number of watch cycles",
		},
		[]string{"service", "status"},
	)

	// CycleDuration tracks how long a watch cycle takes.
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "svcwatch_cycle_duration_seconds",
			Help:    "Watch cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// CollectorDegraded counts collector runs that fell back to a marker.
	CollectorDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcwatch_collector_degraded_total",
			Help: "Total number of degraded collector runs",
		},
		[]string{"service", "collector"},
	)

	// ResourceUsage holds the last reported cpu/memory fraction.
	ResourceUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "svcwatch_resource_usage_ratio",
			Help: "Last reported resource usage of a service",
		},
		[]string{"service", "resource"},
	)

	// Instances holds the number of instances found in the last cycle.
	Instances = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "svcwatch_instances",
			Help: "Number of running instances of a service",
		},
		[]string{"service"},
	)

	// SubmissionsTotal counts report submissions per status.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcwatch_submissions_total",
			Help: "Total number of report submissions",
		},
		[]string{"service", "status"},
	)

	// CallbacksTotal counts dispatched remediation callbacks.
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcwatch_callbacks_total",
			Help: "Total number of dispatched callbacks",
		},
		[]string{"service", "callback", "status"},
	)
)

// Serve exposes the default registry on addr until ctx is cancelled.
func Serve(ctx context.Context, addr, path string, logger *zap.Logger) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr), zap.String("path", path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
