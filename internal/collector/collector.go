// Package collector defines the Collector interface and the report
// collectors for a watched service: HTTP health, RPC chain height, disk
// utilization and price-feed staleness.
package collector

import (
	"context"
	"errors"

	"github.com/Guliveer/svcwatch/internal/models"
)

// ErrFieldNotFound is returned when a configured response field path does
// not exist in an otherwise successful response.
var ErrFieldNotFound = errors.New("field not found")

// Collector is the interface that all report collectors must implement.
// Each collector gathers one signal and contributes one fragment.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the signal. Transient failures are reported as a
	// degraded Outcome; only configuration errors are fatal.
	Collect(ctx context.Context) Outcome

	// IsAvailable checks if this collector can run on the current host.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}

// Outcome is the result of one collector run.
type Outcome struct {
	// Fragment is merged into the report. For degraded outcomes it holds
	// the collector's failure marker.
	Fragment models.Fragment
	// Err is the underlying failure, if any.
	Err error
	// Fatal marks Err as a configuration error that aborts the cycle.
	Fatal bool
}

// Degraded reports whether the collector failed but produced a marker.
func (o Outcome) Degraded() bool { return o.Err != nil && !o.Fatal }

func succeeded(f models.Fragment) Outcome {
	return Outcome{Fragment: f}
}

func degraded(marker models.Fragment, err error) Outcome {
	return Outcome{Fragment: marker, Err: err}
}

func failed(err error) Outcome {
	return Outcome{Err: err, Fatal: true}
}
