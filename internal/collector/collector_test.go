package collector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/models"
	"github.com/Guliveer/svcwatch/internal/transport"
)

type stubGetter struct {
	resp  any
	err   error
	calls int
}

func (s *stubGetter) Get(ctx context.Context, req transport.Request) (any, error) {
	s.calls++
	return s.resp, s.err
}

type stubCaller struct {
	resp any
	err  error
}

func (s *stubCaller) Call(ctx context.Context, req transport.RPCRequest) (any, error) {
	return s.resp, s.err
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.123456, 0.1235},
		{0.92, 0.92},
		{1.00004, 1},
		{0, 0},
	}
	for _, tt := range tests {
		got := Round(tt.in)
		if got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if again := Round(got); again != got {
			t.Errorf("Round is not idempotent for %v: %v then %v", tt.in, got, again)
		}
	}
}

func TestHTTPCollector_TransportFailure(t *testing.T) {
	c := NewHTTPCollector(&stubGetter{err: errors.New("connection refused")}, transport.Request{}, "data")

	o := c.Collect(context.Background())
	assert.True(t, o.Degraded())
	assert.Equal(t, models.Fragment{"http": false}, o.Fragment)
}

func TestHTTPCollector_FieldPath(t *testing.T) {
	resp := map[string]any{
		"data": map[string]any{
			"status": map[string]any{"peers": json.Number("8"), "syncing": false},
		},
	}
	c := NewHTTPCollector(&stubGetter{resp: resp}, transport.Request{}, "data.status")

	o := c.Collect(context.Background())
	require.NoError(t, o.Err)
	assert.Equal(t, models.Fragment{"http": true, "peers": json.Number("8"), "syncing": false}, o.Fragment)
}

func TestHTTPCollector_ScalarSelection(t *testing.T) {
	resp := map[string]any{"data": map[string]any{"ok": true}}
	c := NewHTTPCollector(&stubGetter{resp: resp}, transport.Request{}, "data.ok")

	o := c.Collect(context.Background())
	require.NoError(t, o.Err)
	assert.Equal(t, models.Fragment{"http": true}, o.Fragment)
}

func TestHTTPCollector_NonObjectBody(t *testing.T) {
	c := NewHTTPCollector(&stubGetter{resp: "OK"}, transport.Request{}, "data.status")

	o := c.Collect(context.Background())
	require.NoError(t, o.Err)
	assert.Equal(t, models.Fragment{"http": true}, o.Fragment)
}

func TestHTTPCollector_MissingFieldIsFatal(t *testing.T) {
	resp := map[string]any{"data": map[string]any{"status": "up"}}
	for _, field := range []string{"result", "data.missing", "data.status.deeper"} {
		t.Run(field, func(t *testing.T) {
			c := NewHTTPCollector(&stubGetter{resp: resp}, transport.Request{}, field)
			o := c.Collect(context.Background())
			assert.True(t, o.Fatal)
			assert.ErrorIs(t, o.Err, ErrFieldNotFound)
		})
	}
}

func TestRPCCollector(t *testing.T) {
	tests := []struct {
		name  string
		resp  any
		err   error
		chain string
		want  models.Fragment
	}{
		{
			name:  "hex height",
			resp:  "0x1a",
			chain: "eth",
			want:  models.Fragment{"rpc": true, "blockNumber": map[string]any{"eth": []uint64{26}}},
		},
		{
			name:  "decimal string",
			resp:  "42",
			chain: "eth",
			want:  models.Fragment{"rpc": true, "blockNumber": map[string]any{"eth": []uint64{42}}},
		},
		{
			name:  "json number",
			resp:  json.Number("1000"),
			chain: "bsc",
			want:  models.Fragment{"rpc": true, "blockNumber": map[string]any{"bsc": []uint64{1000}}},
		},
		{
			name:  "non numeric string",
			resp:  "syncing",
			chain: "eth",
			want:  models.Fragment{"rpc": true},
		},
		{
			name:  "object result",
			resp:  map[string]any{"peers": json.Number("3")},
			chain: "eth",
			want:  models.Fragment{"rpc": true, "peers": json.Number("3")},
		},
		{
			name:  "height beyond uint64",
			resp:  float64(1e20),
			chain: "eth",
			want:  models.Fragment{"rpc": true},
		},
		{
			name:  "json number beyond uint64",
			resp:  json.Number("18446744073709551616"),
			chain: "eth",
			want:  models.Fragment{"rpc": true},
		},
		{
			name: "no chain",
			resp: "0x10",
			want: models.Fragment{"rpc": true},
		},
		{
			name:  "failure",
			err:   errors.New("timeout"),
			chain: "eth",
			want:  models.Fragment{"rpc": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRPCCollector(&stubCaller{resp: tt.resp, err: tt.err}, transport.RPCRequest{}, tt.chain)
			o := c.Collect(context.Background())
			assert.False(t, o.Fatal)
			assert.Equal(t, tt.err != nil, o.Degraded())
			assert.Equal(t, tt.want, o.Fragment)
		})
	}
}

const dfOutput = `Filesystem      Size  Used Avail Use% Mounted on
udev            7.8G     0  7.8G   0% /dev
/dev/sda1        98G   85G  8.2G  92% /
/dev/loop0       56M   28M   28M  50% /snap/core18/1
/dev/sdb         1.8T  1.2T 600G    - /data
/dev/nvme0n1p1  477G  200G  277G  42% /home
`

func TestDiskCollector_DefaultPattern(t *testing.T) {
	query := func(ctx context.Context) (string, error) { return dfOutput, nil }
	c, err := NewDiskCollector(query, nil, "")
	require.NoError(t, err)

	o := c.Collect(context.Background())
	require.NoError(t, o.Err)
	disks := o.Fragment["disk"].(map[string]any)
	require.Len(t, disks, 2)
	assert.Equal(t, map[string]any{
		"size":        "98G",
		"used":        "85G",
		"available":   "8.2G",
		"utilization": 0.92,
	}, disks["/dev/sda1"])
	assert.Equal(t, 0.0, disks["/dev/sdb"].(map[string]any)["utilization"])
	assert.NotContains(t, disks, "/dev/loop0")
}

func TestDiskCollector_AllowList(t *testing.T) {
	query := func(ctx context.Context) (string, error) { return dfOutput, nil }
	c, err := NewDiskCollector(query, []string{"/dev/nvme0n1p1", "/dev/loop0"}, "")
	require.NoError(t, err)

	o := c.Collect(context.Background())
	disks := o.Fragment["disk"].(map[string]any)
	require.Len(t, disks, 2)
	assert.Equal(t, 0.42, disks["/dev/nvme0n1p1"].(map[string]any)["utilization"])
	assert.Equal(t, 0.5, disks["/dev/loop0"].(map[string]any)["utilization"])
}

func TestDiskCollector_EmptyAllowListKeepsNothing(t *testing.T) {
	query := func(ctx context.Context) (string, error) { return dfOutput, nil }
	c, err := NewDiskCollector(query, []string{}, "")
	require.NoError(t, err)

	o := c.Collect(context.Background())
	assert.Equal(t, models.Fragment{"disk": map[string]any{}}, o.Fragment)
}

func TestDiskCollector_QueryFailure(t *testing.T) {
	query := func(ctx context.Context) (string, error) { return "", errors.New("df: not found") }
	c, err := NewDiskCollector(query, nil, "")
	require.NoError(t, err)

	o := c.Collect(context.Background())
	assert.True(t, o.Degraded())
	assert.Equal(t, models.Fragment{"disk": false}, o.Fragment)
}

func TestNewDiskCollector_BadPattern(t *testing.T) {
	_, err := NewDiskCollector(nil, nil, "[")
	assert.Error(t, err)
}

func TestPriceFeedCollector(t *testing.T) {
	at := time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)
	resp := map[string]any{
		"lastTxInfo": map[string]any{
			"a": map[string]any{"name": "ETH/USD", "at": at.Format(time.RFC3339Nano)},
			"b": map[string]any{"name": "BTC/USD", "at": json.Number("1700000000000")},
		},
	}
	c := NewPriceFeedCollector(&stubGetter{resp: resp}, transport.Request{})

	o := c.Collect(context.Background())
	require.NoError(t, o.Err)
	assert.Equal(t, models.Fragment{"priceFeed": map[string]any{
		"ETH/USD": at.UnixMilli(),
		"BTC/USD": int64(1700000000000),
	}}, o.Fragment)
}

func TestPriceFeedCollector_Degrades(t *testing.T) {
	tests := []struct {
		name string
		g    *stubGetter
	}{
		{"fetch error", &stubGetter{err: errors.New("503")}},
		{"scalar body", &stubGetter{resp: "maintenance"}},
		{"missing lastTxInfo", &stubGetter{resp: map[string]any{}}},
		{"bad timestamp", &stubGetter{resp: map[string]any{
			"lastTxInfo": []any{map[string]any{"name": "ETH/USD", "at": "yesterday"}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewPriceFeedCollector(tt.g, transport.Request{}).Collect(context.Background())
			assert.True(t, o.Degraded())
			assert.Equal(t, models.Fragment{"priceFeed": map[string]any{}}, o.Fragment)
		})
	}
}

type staticCollector struct {
	name      string
	outcome   Outcome
	available bool
	ran       *[]string
}

func (s staticCollector) Name() string      { return s.name }
func (s staticCollector) IsAvailable() bool { return s.available }
func (s staticCollector) Collect(ctx context.Context) Outcome {
	*s.ran = append(*s.ran, s.name)
	return s.outcome
}

func TestRegistryRun(t *testing.T) {
	var ran []string
	r := NewRegistry(zap.NewNop())
	r.Register(staticCollector{name: "http", available: true, ran: &ran,
		outcome: succeeded(models.Fragment{"http": true, "cpuUsage": 99.0})})
	r.Register(staticCollector{name: "disk", available: false, ran: &ran,
		outcome: succeeded(models.Fragment{"disk": map[string]any{}})})
	r.Register(staticCollector{name: "rpc", available: true, ran: &ran,
		outcome: degraded(models.Fragment{"rpc": false}, errors.New("down"))})

	var degradedNames []string
	r.OnOutcome(func(name string, o Outcome) {
		if o.Degraded() {
			degradedNames = append(degradedNames, name)
		}
	})

	report := models.NewReport(0.1, 0.2)
	require.NoError(t, r.Run(context.Background(), report))

	assert.Equal(t, []string{"http", "rpc"}, ran)
	assert.Equal(t, []string{"rpc"}, degradedNames)
	assert.Equal(t, 0.1, report["cpuUsage"])
	assert.Equal(t, true, report["http"])
	assert.Equal(t, false, report["rpc"])
	assert.NotContains(t, report, "disk")
}

func TestRegistryRun_StopsOnFatal(t *testing.T) {
	var ran []string
	r := NewRegistry(nil)
	r.Register(staticCollector{name: "http", available: true, ran: &ran,
		outcome: failed(ErrFieldNotFound)})
	r.Register(staticCollector{name: "rpc", available: true, ran: &ran,
		outcome: succeeded(models.Fragment{"rpc": true})})

	err := r.Run(context.Background(), models.NewReport(0, 0))
	assert.ErrorIs(t, err, ErrFieldNotFound)
	assert.Equal(t, []string{"http"}, ran)
}
