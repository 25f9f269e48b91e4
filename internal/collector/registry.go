package collector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/models"
)

// Registry holds the collectors of one watch cycle in invocation order.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
	onOutcome  func(name string, o Outcome)
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collectors: make([]Collector, 0),
		logger:     logger,
	}
}

// Register appends a collector if it's available on the current host.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if c.IsAvailable() {
		r.collectors = append(r.collectors, c)
		r.logger.Debug("Registered collector", zap.String("name", c.Name()))
	} else {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
	}
}

// OnOutcome sets a hook invoked after every collector run.
func (r *Registry) OnOutcome(fn func(name string, o Outcome)) {
	r.onOutcome = fn
}

// Run invokes the collectors one after another and merges each fragment
// into report. Degraded collectors are logged and their markers merged;
// the first fatal outcome stops the run and is returned.
func (r *Registry) Run(ctx context.Context, report models.Report) error {
	for _, c := range r.collectors {
		o := c.Collect(ctx)
		if r.onOutcome != nil {
			r.onOutcome(c.Name(), o)
		}

		if o.Fatal {
			return fmt.Errorf("collector %s: %w", c.Name(), o.Err)
		}
		if o.Err != nil {
			r.logger.Warn("Collector degraded",
				zap.String("collector", c.Name()),
				zap.Error(o.Err))
		}

		if dropped := report.Merge(o.Fragment); len(dropped) > 0 {
			r.logger.Warn("Collector fragment keys ignored",
				zap.String("collector", c.Name()),
				zap.Strings("keys", dropped))
		}
	}
	return nil
}
