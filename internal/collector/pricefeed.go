// Price-feed staleness collector. It reports when each named feed transaction
// last landed, as epoch milliseconds.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Guliveer/svcwatch/internal/models"
	"github.com/Guliveer/svcwatch/internal/transport"
)

// timestampLayouts are tried in order for string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
}

// PriceFeedCollector reads the lastTxInfo section of a price-feed endpoint.
type PriceFeedCollector struct {
	client Getter
	req    transport.Request
}

// NewPriceFeedCollector creates a price-feed collector.
func NewPriceFeedCollector(client Getter, req transport.Request) *PriceFeedCollector {
	return &PriceFeedCollector{client: client, req: req}
}

// Name returns the collector identifier.
func (c *PriceFeedCollector) Name() string { return models.KeyPriceFeed }

// Collect fetches the feed. Any fetch or parse error yields {priceFeed: {}}.
func (c *PriceFeedCollector) Collect(ctx context.Context) Outcome {
	empty := models.Fragment{models.KeyPriceFeed: map[string]any{}}

	resp, err := c.client.Get(ctx, c.req)
	if err != nil {
		return degraded(empty, err)
	}

	feeds, err := parseLastTxInfo(resp)
	if err != nil {
		return degraded(empty, err)
	}
	return succeeded(models.Fragment{models.KeyPriceFeed: feeds})
}

// IsAvailable returns true; price feeds are plain HTTP.
func (c *PriceFeedCollector) IsAvailable() bool { return true }

// parseLastTxInfo maps every lastTxInfo entry name to its timestamp in
// epoch milliseconds. lastTxInfo may be an object or an array.
func parseLastTxInfo(resp any) (map[string]any, error) {
	obj, ok := resp.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("price feed response is %T, want object", resp)
	}

	var entries []any
	switch info := obj["lastTxInfo"].(type) {
	case map[string]any:
		for _, v := range info {
			entries = append(entries, v)
		}
	case []any:
		entries = info
	case nil:
		return nil, errors.New("price feed response has no lastTxInfo")
	default:
		return nil, fmt.Errorf("lastTxInfo is %T, want object or array", info)
	}

	feeds := make(map[string]any, len(entries))
	for _, e := range entries {
		tx, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("lastTxInfo entry is %T, want object", e)
		}
		name, ok := tx["name"].(string)
		if !ok || name == "" {
			return nil, errors.New("lastTxInfo entry without name")
		}
		ms, err := epochMillis(tx["at"])
		if err != nil {
			return nil, fmt.Errorf("lastTxInfo %s: %w", name, err)
		}
		feeds[name] = ms
	}
	return feeds, nil
}

// epochMillis converts a timestamp (date string or epoch milliseconds) to
// epoch milliseconds.
func epochMillis(v any) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case float64:
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UnixMilli(), nil
			}
		}
		return 0, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return 0, fmt.Errorf("timestamp is %T", v)
	}
}
