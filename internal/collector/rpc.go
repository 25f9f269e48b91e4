// RPC chain-height collector. It calls a node's JSON-RPC endpoint and records
// the returned block height per chain.
package collector

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Guliveer/svcwatch/internal/models"
	"github.com/Guliveer/svcwatch/internal/transport"
)

// Caller issues JSON-RPC calls and returns decoded results.
type Caller interface {
	Call(ctx context.Context, req transport.RPCRequest) (any, error)
}

// RPCCollector probes a JSON-RPC node.
type RPCCollector struct {
	client Caller
	req    transport.RPCRequest
	chain  string
}

// NewRPCCollector creates an RPC collector. When chain is set, numeric
// results are reported under blockNumber.<chain>.
func NewRPCCollector(client Caller, req transport.RPCRequest, chain string) *RPCCollector {
	return &RPCCollector{client: client, req: req, chain: chain}
}

// Name returns the collector identifier.
func (c *RPCCollector) Name() string { return models.KeyRPC }

// Collect performs the call. Any failure yields {rpc: false}.
func (c *RPCCollector) Collect(ctx context.Context) Outcome {
	result, err := c.client.Call(ctx, c.req)
	if err != nil {
		return degraded(models.Fragment{models.KeyRPC: false}, err)
	}

	frag := models.Fragment{}
	if obj, ok := result.(map[string]any); ok {
		for k, v := range obj {
			frag[k] = v
		}
	}
	frag[models.KeyRPC] = true

	if c.chain != "" {
		if height, ok := parseHeight(result); ok {
			frag[models.KeyBlockNumber] = map[string]any{
				c.chain: []uint64{height},
			}
		}
	}
	return succeeded(frag)
}

// IsAvailable returns true; RPC probes work everywhere.
func (c *RPCCollector) IsAvailable() bool { return true }

// parseHeight converts a numeric result to a block height. Strings with a
// 0x prefix are hexadecimal, other strings base-10.
func parseHeight(v any) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return nonNegative(float64(i), uint64(i))
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return nonNegative(f, uint64(math.Floor(f)))
	case float64:
		return nonNegative(n, uint64(math.Floor(n)))
	case string:
		s := strings.TrimSpace(n)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			h, err := strconv.ParseUint(s[2:], 16, 64)
			return h, err == nil
		}
		h, err := strconv.ParseUint(s, 10, 64)
		return h, err == nil
	default:
		return 0, false
	}
}

func nonNegative(f float64, h uint64) (uint64, bool) {
	if f < 0 || f >= math.MaxUint64 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return h, true
}
