// Package scheduler implements the tick-based loop that drives watch cycles.
// On every tick it runs one cycle per configured service, one service after
// another, so cycles never overlap. The scheduler does NOT interpret results;
// it hands each one to a callback.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/config"
	"github.com/Guliveer/svcwatch/internal/watch"
)

// Runner runs a single watch cycle.
type Runner interface {
	Watch(ctx context.Context, svc config.ServiceConfig) (*watch.Result, error)
}

// Outcome pairs a service with the result of its cycle.
type Outcome struct {
	Service string
	Result  *watch.Result
	Err     error
}

// Scheduler manages periodic watch cycles.
type Scheduler struct {
	runner   Runner
	services []config.ServiceConfig
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	onOutcome func(Outcome)
}

// New creates a Scheduler for the services in cfg.
func New(runner Runner, cfg *config.Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		services: cfg.Services,
		interval: cfg.Collection.Interval.Duration,
		timeout:  cfg.Collection.CycleTimeout.Duration,
		logger:   logger.Named("scheduler"),
	}
}

// OnOutcome sets the callback invoked after every cycle.
func (s *Scheduler) OnOutcome(fn func(Outcome)) {
	s.onOutcome = fn
}

// Start runs a round immediately and then one per interval. It blocks until
// the context is cancelled; a round in progress finishes its current cycle
// under the cancelled context.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("services", len(s.services)))

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs one cycle for every service and returns the outcomes in
// service order.
func (s *Scheduler) RunOnce(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, 0, len(s.services))
	for _, svc := range s.services {
		if ctx.Err() != nil {
			break
		}
		o := s.run(ctx, svc)
		outcomes = append(outcomes, o)
		if s.onOutcome != nil {
			s.onOutcome(o)
		}
	}
	return outcomes
}

func (s *Scheduler) run(ctx context.Context, svc config.ServiceConfig) Outcome {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.runner.Watch(ctx, svc)
	if err != nil {
		s.logger.Error("Watch cycle failed", zap.String("service", svc.Name), zap.Error(err))
	}
	return Outcome{Service: svc.Name, Result: res, Err: err}
}
