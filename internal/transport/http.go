// Package transport implements the HTTP and JSON-RPC clients used by the
// collectors and remediation callbacks. Responses are decoded into generic
// JSON values so callers can distinguish structured from scalar bodies.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// defaultTimeout applies when neither the request nor the client sets one.
	defaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20

	userAgent = "svcwatch"
)

// Request describes a single HTTP exchange.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    any
	Timeout time.Duration
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Client performs HTTP and JSON-RPC requests.
type Client struct {
	http *http.Client
}

// NewClient creates a client whose requests time out after timeout unless a
// request carries its own timeout. A zero timeout selects the default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET-style request; an empty method defaults to GET.
func (c *Client) Get(ctx context.Context, req Request) (any, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	return c.Do(ctx, req)
}

// Post performs a request with the POST method.
func (c *Client) Post(ctx context.Context, req Request) (any, error) {
	req.Method = http.MethodPost
	return c.Do(ctx, req)
}

// Do sends the request and decodes the response. JSON bodies are returned as
// map[string]any, []any, json.Number, string, bool or nil; non-JSON bodies are
// returned as a trimmed string.
func (c *Client) Do(ctx context.Context, req Request) (any, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	raw, err := c.roundTrip(httpReq)
	if err != nil {
		return nil, err
	}
	return decodeBody(raw), nil
}

// roundTrip executes the request and returns the body of a 2xx response.
func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(data)), 256),
		}
	}
	return data, nil
}

// buildURL parses and escapes the target URL and merges extra query values.
func buildURL(raw string, query map[string]string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("request URL is empty")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q must be absolute", raw)
	}
	// Re-encode so configured URIs with spaces or non-ASCII characters
	// produce a valid request line; String escapes the path.
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeBody decodes a JSON document, keeping numbers as json.Number.
// Anything that is not a single JSON value is returned as text.
func decodeBody(data []byte) any {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(trimmed)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
