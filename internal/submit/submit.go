// Package submit delivers reports to the monitor host and returns the
// callbacks it requests. The transport is chosen from the host URL: HTTP(S)
// hosts receive a gzip-compressed JSON POST, nats:// hosts a request/reply
// message.
package submit

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/config"
	"github.com/Guliveer/svcwatch/internal/models"
)

// Submitter sends a report and returns the monitor host's response.
//
//go:generate mockgen -destination=mock_submitter.go -package=submit github.com/Guliveer/svcwatch/internal/submit Submitter
type Submitter interface {
	Submit(ctx context.Context, report models.Report) (*models.SubmitResponse, error)
}

type requestIDKey struct{}

// WithRequestID attaches an identifier that submitters forward to the host.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// New creates the submitter for cfg.Host. It returns nil when no host is
// configured, which disables submission.
func New(cfg config.MonitorConfig, logger *zap.Logger) (Submitter, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid monitor host: %w", err)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPSubmitter(cfg.Host, cfg.SubmitPath, cfg.Token, timeout, logger), nil
	case "nats", "tls":
		s, err := NewNATSSubmitter(cfg.Host, cfg.Subject, cfg.Token, timeout, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported monitor host scheme %q", u.Scheme)
	}
}
