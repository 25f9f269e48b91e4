package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/models"
)

// requester is the part of *nats.Conn used to submit reports.
type requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// NATSSubmitter publishes reports as NATS requests and waits for the reply.
type NATSSubmitter struct {
	conn    *nats.Conn
	req     requester
	subject string
	timeout time.Duration
	logger  *zap.Logger
}

// NewNATSSubmitter connects to the NATS server at url.
func NewNATSSubmitter(url, subject, token string, timeout time.Duration, logger *zap.Logger) (*NATSSubmitter, error) {
	logger = logger.Named("submit")

	opts := []nats.Option{
		nats.Name("svcwatch"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSSubmitter{
		conn:    nc,
		req:     nc,
		subject: subject,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Submit sends the report on the configured subject and decodes the reply.
func (s *NATSSubmitter) Submit(ctx context.Context, report models.Report) (*models.SubmitResponse, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if id := requestID(ctx); id != "" {
		msg.Header.Set("X-Request-ID", id)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.req.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("nats request %s: %w", s.subject, err)
	}

	s.logger.Debug("Report submitted", zap.String("subject", s.subject), zap.Int("bytes", len(data)))
	return decodeResponse(reply.Data)
}

// Close drains the NATS connection. A connection that never reached the
// server has nothing to drain and is closed directly.
func (s *NATSSubmitter) Close() error {
	if s.conn == nil {
		return nil
	}
	if !s.conn.IsConnected() {
		s.conn.Close()
		return nil
	}
	return s.conn.Drain()
}
