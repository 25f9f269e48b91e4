// HTTP health collector. It probes a service endpoint and optionally lifts
// fields of its JSON response into the report.
package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/Guliveer/svcwatch/internal/models"
	"github.com/Guliveer/svcwatch/internal/transport"
)

// Getter issues HTTP requests and returns decoded bodies.
type Getter interface {
	Get(ctx context.Context, req transport.Request) (any, error)
}

// HTTPCollector probes an HTTP endpoint.
type HTTPCollector struct {
	client Getter
	req    transport.Request
	field  string
}

// NewHTTPCollector creates an HTTP collector. field is an optional dotted
// path selecting a nested object of the response to merge into the report.
func NewHTTPCollector(client Getter, req transport.Request, field string) *HTTPCollector {
	return &HTTPCollector{client: client, req: req, field: field}
}

// Name returns the collector identifier.
func (c *HTTPCollector) Name() string { return models.KeyHTTP }

// Collect issues the request. Any transport failure yields {http: false}.
// A missing response field is a configuration error and is fatal.
func (c *HTTPCollector) Collect(ctx context.Context) Outcome {
	resp, err := c.client.Get(ctx, c.req)
	if err != nil {
		return degraded(models.Fragment{models.KeyHTTP: false}, err)
	}

	frag := models.Fragment{}
	if obj, ok := resp.(map[string]any); ok {
		value, err := extractField(obj, c.field)
		if err != nil {
			return failed(err)
		}
		if fields, ok := value.(map[string]any); ok {
			for k, v := range fields {
				frag[k] = v
			}
		}
	}
	frag[models.KeyHTTP] = true
	return succeeded(frag)
}

// IsAvailable returns true; HTTP probes work everywhere.
func (c *HTTPCollector) IsAvailable() bool { return true }

// extractField walks obj along a dotted path. An empty path selects obj.
func extractField(obj map[string]any, path string) (any, error) {
	if path == "" {
		return obj, nil
	}

	var cur any = obj
	for _, segment := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s (at %q)", ErrFieldNotFound, path, segment)
		}
		next, ok := m[segment]
		if !ok {
			return nil, fmt.Errorf("%w: %s (at %q)", ErrFieldNotFound, path, segment)
		}
		cur = next
	}
	return cur, nil
}
