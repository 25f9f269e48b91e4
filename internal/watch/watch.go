// Package watch runs one watch cycle for a service: it enumerates the
// service's instances, computes the resource baseline, runs the configured
// collectors, stamps the identity fields, submits the report and dispatches
// the callbacks the monitor host asks for.
//
// Only three conditions abort a cycle: a missing or unknown instance type,
// a pm2 service without instances, and a response field that does not exist.
// Every other failure is recorded in the report or in the cycle Result.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/callback"
	"github.com/Guliveer/svcwatch/internal/collector"
	"github.com/Guliveer/svcwatch/internal/config"
	"github.com/Guliveer/svcwatch/internal/metrics"
	"github.com/Guliveer/svcwatch/internal/models"
	"github.com/Guliveer/svcwatch/internal/process"
	"github.com/Guliveer/svcwatch/internal/submit"
)

// Client is the HTTP/RPC client shared by collectors and callbacks.
type Client interface {
	collector.Getter
	collector.Caller
	callback.Poster
}

// Deps are the collaborators of a Watcher.
type Deps struct {
	Client Client
	// Manager backs the pm2 strategy.
	Manager process.Manager
	// Submitter delivers reports; nil disables submission.
	Submitter submit.Submitter
	// TotalMemory defaults to process.TotalMemory.
	TotalMemory func(ctx context.Context) (uint64, error)
	// DiskQuery defaults to collector.DFQuery.
	DiskQuery collector.DiskQuery
	// TableEnumerator builds the process-table enumerator; defaults to
	// process.NewTableEnumerator.
	TableEnumerator func(pattern string, logger *zap.Logger) (process.Enumerator, error)
}

// Result is the outcome of one watch cycle.
type Result struct {
	CycleID   string
	Report    models.Report
	Instances int
	Submitted bool
	SubmitErr error
	Callbacks []callback.Result
}

// Watcher runs watch cycles. It keeps no state between cycles.
type Watcher struct {
	deps   Deps
	logger *zap.Logger
}

// New creates a Watcher.
func New(deps Deps, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.TotalMemory == nil {
		deps.TotalMemory = process.TotalMemory
	}
	if deps.TableEnumerator == nil {
		deps.TableEnumerator = func(pattern string, logger *zap.Logger) (process.Enumerator, error) {
			return process.NewTableEnumerator(pattern, logger)
		}
	}
	return &Watcher{deps: deps, logger: logger.Named("watch")}
}

// Watch runs one cycle for svc and returns the report it built.
func (w *Watcher) Watch(ctx context.Context, svc config.ServiceConfig) (*Result, error) {
	start := time.Now()
	res, err := w.watch(ctx, svc)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CyclesTotal.WithLabelValues(svc.Name, status).Inc()
	metrics.CycleDuration.WithLabelValues(svc.Name).Observe(time.Since(start).Seconds())
	return res, err
}

func (w *Watcher) watch(ctx context.Context, svc config.ServiceConfig) (*Result, error) {
	res := &Result{CycleID: uuid.NewString()}
	logger := w.logger.With(
		zap.String("service", svc.Name),
		zap.String("cycle_id", res.CycleID))

	logger.Debug("Collecting")

	strategy, err := process.SelectStrategy(svc.InstanceType)
	if err != nil {
		return nil, err
	}

	enumerator, err := w.enumerator(strategy, svc, logger)
	if err != nil {
		return nil, err
	}

	instances, err := enumerator.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	res.Instances = len(instances)
	metrics.Instances.WithLabelValues(svc.Name).Set(float64(len(instances)))

	var totalMemory uint64
	if strategy == process.StrategyProcessManager {
		totalMemory, err = w.deps.TotalMemory(ctx)
		if err != nil {
			logger.Warn("Total memory unavailable, memory usage will read 0", zap.Error(err))
		}
	}

	usage := ComputeUsage(instances, totalMemory)
	logger.Debug("Resource usage computed",
		zap.String("strategy", strategy.String()),
		zap.Int("instances", len(instances)),
		zap.Float64("cpu_usage", usage.CPU),
		zap.Float64("memory_usage", usage.Memory))
	usage = usage.suppress(svc.SkipWatch.CPUUsage, svc.SkipWatch.MemoryUsage)

	report := models.NewReport(usage.CPU, usage.Memory)

	registry, err := w.collectors(svc, logger)
	if err != nil {
		return nil, err
	}
	registry.OnOutcome(func(name string, o collector.Outcome) {
		if o.Degraded() {
			metrics.CollectorDegraded.WithLabelValues(svc.Name, name).Inc()
		}
	})
	if err := registry.Run(ctx, report); err != nil {
		return nil, err
	}

	report.StampIdentity(svc.Name, svc.ServiceID)
	res.Report = report

	metrics.ResourceUsage.WithLabelValues(svc.Name, "cpu").Set(usage.CPU)
	metrics.ResourceUsage.WithLabelValues(svc.Name, "memory").Set(usage.Memory)
	logger.Info("Report collected", zap.Any("report", map[string]any(report)))

	if w.deps.Submitter == nil {
		return res, nil
	}

	logger.Debug("Submitting")
	resp, err := w.deps.Submitter.Submit(submit.WithRequestID(ctx, res.CycleID), report)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(svc.Name, "error").Inc()
		logger.Error("Submission failed", zap.Error(err))
		res.SubmitErr = err
		return res, nil
	}
	metrics.SubmissionsTotal.WithLabelValues(svc.Name, "ok").Inc()
	res.Submitted = true
	if resp == nil {
		resp = &models.SubmitResponse{}
	}
	logger.Info("Report submitted", zap.Strings("callbacks", resp.Callbacks))

	if len(resp.Callbacks) > 0 {
		res.Callbacks = w.dispatcher(strategy, svc, logger).Dispatch(ctx, resp.Callbacks)
		for _, r := range res.Callbacks {
			metrics.CallbacksTotal.WithLabelValues(svc.Name, r.Name, callbackStatus(r)).Inc()
		}
	}
	return res, nil
}

// enumerator builds the enumerator for the selected strategy.
func (w *Watcher) enumerator(strategy process.Strategy, svc config.ServiceConfig, logger *zap.Logger) (process.Enumerator, error) {
	switch strategy {
	case process.StrategyProcessManager:
		if w.deps.Manager == nil {
			return nil, fmt.Errorf("no process manager available for %s", svc.Name)
		}
		return process.NewManagedEnumerator(w.deps.Manager, svc.Name), nil
	case process.StrategyProcessTable:
		return w.deps.TableEnumerator(svc.Pattern(), logger)
	default:
		return nil, process.ErrInstanceTypeRequired
	}
}

// collectors registers the configured collectors in their fixed order:
// http, rpc, disk, priceFeed.
func (w *Watcher) collectors(svc config.ServiceConfig, logger *zap.Logger) (*collector.Registry, error) {
	registry := collector.NewRegistry(logger)

	if svc.HTTP != nil {
		registry.Register(collector.NewHTTPCollector(w.deps.Client, svc.HTTP.Request(), svc.ResponseField))
	}
	if svc.RPC != nil {
		registry.Register(collector.NewRPCCollector(w.deps.Client, svc.RPC.Request(), svc.RPC.Chain))
	}
	if svc.CheckDisk.Enabled {
		disk, err := collector.NewDiskCollector(w.deps.DiskQuery, svc.CheckDisk.Filesystems, svc.DiskPattern)
		if err != nil {
			return nil, err
		}
		registry.Register(disk)
	}
	if svc.PriceFeed != nil {
		registry.Register(collector.NewPriceFeedCollector(w.deps.Client, svc.PriceFeed.Request()))
	}
	return registry, nil
}

// dispatcher builds the callback dispatcher. Restart is only wired for
// process-managed services.
func (w *Watcher) dispatcher(strategy process.Strategy, svc config.ServiceConfig, logger *zap.Logger) *callback.Dispatcher {
	opts := callback.Options{
		SupportWalletURI: svc.MakeSupportWallet,
	}
	if w.deps.Client != nil {
		opts.Poster = w.deps.Client
	}
	if strategy == process.StrategyProcessManager {
		opts.Manager = w.deps.Manager
	}
	return callback.New(svc.Name, opts, logger)
}

func callbackStatus(r callback.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Err != nil:
		return "error"
	default:
		return "ok"
	}
}
