package submit

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/models"
)

// maxResponseBytes caps the monitor host response size.
const maxResponseBytes = 1 << 20

// HTTPSubmitter posts reports to the monitor host over HTTP.
type HTTPSubmitter struct {
	client *http.Client
	url    string
	token  string
	logger *zap.Logger
}

// NewHTTPSubmitter creates a submitter posting to host+path.
func NewHTTPSubmitter(host, path, token string, timeout time.Duration, logger *zap.Logger) *HTTPSubmitter {
	return &HTTPSubmitter{
		client: &http.Client{
			Timeout: timeout,
		},
		url:    strings.TrimRight(host, "/") + "/" + strings.TrimLeft(path, "/"),
		token:  token,
		logger: logger.Named("submit"),
	}
}

// Submit marshals the report to JSON, compresses it with gzip and POSTs it.
// A 2xx response body, if any, is decoded as a SubmitResponse.
func (s *HTTPSubmitter) Submit(ctx context.Context, report models.Report) (*models.SubmitResponse, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("finalize gzip compression: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &compressed)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if id := requestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	s.logger.Debug("Report submitted",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)))
	return decodeResponse(body)
}

// decodeResponse parses the host reply. An empty body means no callbacks.
func decodeResponse(body []byte) (*models.SubmitResponse, error) {
	out := &models.SubmitResponse{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return out, nil
}
