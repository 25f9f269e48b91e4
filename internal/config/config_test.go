package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Guliveer/svcwatch/internal/process"
)

const sampleConfig = `
monitor:
  host: "https://monitor.example.com"
  token: "file_token"
collection:
  interval: 30s
services:
  - name: api
    instance_type: pm2
    service_id: api-1
    http:
      uri: "http://127.0.0.1:8080/health"
      headers:
        X-Probe: "svcwatch"
    response_field: data.status
    check_disk: true
    skip_watch:
      memory_usage: true
  - name: geth
    instance_type: command
    command_pattern: "geth .*--syncmode"
    rpc:
      uri: "http://127.0.0.1:8545"
      method: eth_blockNumber
      chain: eth
      timeout: 5s
    check_disk: ["/dev/nvme0n1p1"]
    price_feed:
      uri: "https://feed.example.com/status"
`

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	embedded := []byte("monitor:\n  host: \"https://embedded.example.com\"\n  token: \"embedded_token\"")
	t.Setenv("SVCWATCH_MONITOR_HOST", "https://env.example.com")
	cli := CLIOverrides{MonitorHost: "https://cli.example.com", LogLevel: "debug"}

	cfg, err := LoadLayered(cli, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Host != "https://cli.example.com" {
		t.Errorf("Host = %q, want CLI override", cfg.Monitor.Host)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want CLI override", cfg.Logging.Level)
	}
}

func TestLoadLayered_EnvOverridesEmbed(t *testing.T) {
	embedded := []byte("monitor:\n  host: \"https://embedded.example.com\"\n  token: \"embedded_token\"")
	t.Setenv("SVCWATCH_MONITOR_HOST", "https://env.example.com")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Host != "https://env.example.com" {
		t.Errorf("Host = %q, want env override", cfg.Monitor.Host)
	}
	if cfg.Monitor.Token != "embedded_token" {
		t.Errorf("Token = %q, want embedded value", cfg.Monitor.Token)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.Interval.Duration != time.Minute {
		t.Errorf("Interval = %v, want 1m default", cfg.Collection.Interval.Duration)
	}
	if cfg.Monitor.SubmitPath != "/api/reports" {
		t.Errorf("SubmitPath = %q, want default", cfg.Monitor.SubmitPath)
	}
}

func TestLoadLayered_FileServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcwatch.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(CLIOverrides{}, nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if len(cfg.Services) != 2 {
		t.Fatalf("Services = %d, want 2", len(cfg.Services))
	}

	api := cfg.Services[0]
	if !api.CheckDisk.Enabled || api.CheckDisk.Filesystems != nil {
		t.Errorf("api CheckDisk = %+v, want enabled without allow-list", api.CheckDisk)
	}
	if !api.SkipWatch.MemoryUsage || api.SkipWatch.CPUUsage {
		t.Errorf("api SkipWatch = %+v", api.SkipWatch)
	}
	if got := api.HTTP.Request().Headers["X-Probe"]; got != "svcwatch" {
		t.Errorf("X-Probe header = %q", got)
	}
	if api.Pattern() != "api" {
		t.Errorf("Pattern() = %q, want service name", api.Pattern())
	}

	geth := cfg.Services[1]
	if len(geth.CheckDisk.Filesystems) != 1 || geth.CheckDisk.Filesystems[0] != "/dev/nvme0n1p1" {
		t.Errorf("geth CheckDisk = %+v", geth.CheckDisk)
	}
	if geth.RPC.Request().Timeout != 5*time.Second {
		t.Errorf("rpc timeout = %v, want 5s", geth.RPC.Request().Timeout)
	}
	if geth.Pattern() != "geth .*--syncmode" {
		t.Errorf("Pattern() = %q", geth.Pattern())
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Services = []ServiceConfig{{Name: "api", InstanceType: "pm2"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no services", func(c *Config) { c.Services = nil }, true},
		{"missing instance type", func(c *Config) { c.Services[0].InstanceType = "" }, true},
		{"unknown instance type", func(c *Config) { c.Services[0].InstanceType = "docker" }, true},
		{"bad pattern", func(c *Config) {
			c.Services[0].InstanceType = "command"
			c.Services[0].CommandPattern = "("
		}, true},
		{"http without uri", func(c *Config) { c.Services[0].HTTP = &HTTPSpec{} }, true},
		{"plain http remote monitor", func(c *Config) { c.Monitor.Host = "http://monitor.example.com" }, true},
		{"plain http localhost monitor", func(c *Config) { c.Monitor.Host = "http://localhost:3000" }, false},
		{"nats monitor", func(c *Config) { c.Monitor.Host = "nats://127.0.0.1:4222" }, false},
		{"zero interval", func(c *Config) { c.Collection.Interval = Duration{0} }, true},
		{"negative interval", func(c *Config) { c.Collection.Interval = Duration{-time.Second} }, true},
		{"negative cycle timeout", func(c *Config) { c.Collection.CycleTimeout = Duration{-time.Second} }, true},
		{"cycle timeout disabled", func(c *Config) { c.Collection.CycleTimeout = Duration{0} }, false},
		{"duplicate service", func(c *Config) {
			c.Services = append(c.Services, ServiceConfig{Name: "api", InstanceType: "ps"})
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_InstanceTypeError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services = []ServiceConfig{{Name: "api"}}
	if err := cfg.Validate(); !errors.Is(err, process.ErrInstanceTypeRequired) {
		t.Errorf("Validate() = %v, want ErrInstanceTypeRequired", err)
	}
}

func TestWriteConfig_RoundTripsDiskCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Services = []ServiceConfig{
		{Name: "api", InstanceType: "pm2", CheckDisk: DiskCheck{Enabled: true, Filesystems: []string{"/dev/sda1"}}},
		{Name: "geth", InstanceType: "ps", CheckDisk: DiskCheck{Enabled: true, Filesystems: []string{}}},
		{Name: "worker", InstanceType: "ps", CheckDisk: DiskCheck{Enabled: true}},
	}

	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadLayered(CLIOverrides{}, nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Services) != 3 {
		t.Fatalf("expected 3 services, got %d", len(loaded.Services))
	}

	got := loaded.Services[0].CheckDisk
	if !got.Enabled || len(got.Filesystems) != 1 || got.Filesystems[0] != "/dev/sda1" {
		t.Errorf("allow-list CheckDisk = %+v after round trip", got)
	}
	got = loaded.Services[1].CheckDisk
	if !got.Enabled || got.Filesystems == nil || len(got.Filesystems) != 0 {
		t.Errorf("empty allow-list CheckDisk = %+v after round trip", got)
	}
	got = loaded.Services[2].CheckDisk
	if !got.Enabled || got.Filesystems != nil {
		t.Errorf("pattern CheckDisk = %+v after round trip", got)
	}
}

func TestLoadLayered_EmptyDiskListIsAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svcwatch.yaml")
	data := "services:\n  - name: api\n    instance_type: pm2\n    check_disk: []\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(CLIOverrides{}, nil, path)
	if err != nil {
		t.Fatal(err)
	}
	got := cfg.Services[0].CheckDisk
	if !got.Enabled || got.Filesystems == nil {
		t.Errorf("CheckDisk = %+v, want enabled with an empty allow-list", got)
	}
}
