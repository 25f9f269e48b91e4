// Package callback executes the remediation actions a monitor host requests
// in its submission response. Actions run one after another; a failing
// action is logged and does not stop the rest.
package callback

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/process"
	"github.com/Guliveer/svcwatch/internal/transport"
)

// Known callback names.
const (
	Restart           = "restart"
	MakeSupportWallet = "makeSupportWallet"
)

// supportWalletCount is the number of wallets requested per call.
const supportWalletCount = 10

var (
	// ErrUnsupported is reported when an action is not available for the
	// service, e.g. restarting a service that is not process-managed.
	ErrUnsupported = errors.New("callback not supported for service")

	// ErrNotConfigured is reported when an action lacks its endpoint.
	ErrNotConfigured = errors.New("callback not configured")
)

// Poster issues HTTP POST requests.
type Poster interface {
	Post(ctx context.Context, req transport.Request) (any, error)
}

// Result is the outcome of one dispatched callback.
type Result struct {
	Name string
	// Skipped is set for unknown or unsupported callbacks.
	Skipped bool
	Err     error
}

// OK reports whether the callback ran and succeeded.
func (r Result) OK() bool { return !r.Skipped && r.Err == nil }

// Options wires the collaborators a dispatcher may call.
type Options struct {
	// Manager restarts the service; nil disables the restart action.
	Manager process.Manager
	// Poster and SupportWalletURI serve the makeSupportWallet action.
	Poster           Poster
	SupportWalletURI string
}

// Dispatcher runs callbacks for one service.
type Dispatcher struct {
	service string
	opts    Options
	logger  *zap.Logger
}

// New creates a dispatcher for service.
func New(service string, opts Options, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		service: service,
		opts:    opts,
		logger:  logger.Named("callback").With(zap.String("service", service)),
	}
}

// Dispatch runs every callback in order and returns one Result per name.
func (d *Dispatcher) Dispatch(ctx context.Context, callbacks []string) []Result {
	results := make([]Result, 0, len(callbacks))
	for _, name := range callbacks {
		r := d.run(ctx, name)
		switch {
		case r.Skipped && r.Err == nil:
			d.logger.Debug("Ignoring unknown callback", zap.String("callback", name))
		case r.Skipped:
			d.logger.Warn("Callback skipped", zap.String("callback", name), zap.Error(r.Err))
		case r.Err != nil:
			d.logger.Error("Callback failed", zap.String("callback", name), zap.Error(r.Err))
		default:
			d.logger.Info("Callback done", zap.String("callback", name))
		}
		results = append(results, r)
	}
	return results
}

func (d *Dispatcher) run(ctx context.Context, name string) Result {
	switch name {
	case Restart:
		if d.opts.Manager == nil {
			return Result{Name: name, Skipped: true, Err: ErrUnsupported}
		}
		return Result{Name: name, Err: d.opts.Manager.Restart(ctx, d.service)}
	case MakeSupportWallet:
		if d.opts.Poster == nil || d.opts.SupportWalletURI == "" {
			return Result{Name: name, Err: ErrNotConfigured}
		}
		_, err := d.opts.Poster.Post(ctx, transport.Request{
			URL:  d.opts.SupportWalletURI,
			Body: map[string]any{"count": supportWalletCount},
		})
		return Result{Name: name, Err: err}
	default:
		return Result{Name: name, Skipped: true}
	}
}
