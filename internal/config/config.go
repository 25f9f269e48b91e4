// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/svcwatch/internal/process"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all watcher configuration.
type Config struct {
	Monitor    MonitorConfig    `yaml:"monitor"`
	Collection CollectionConfig `yaml:"collection"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	PM2        PM2Config        `yaml:"pm2"`
	Services   []ServiceConfig  `yaml:"services"`
}

// MonitorConfig holds the monitor host settings. An empty Host disables
// submission; reports are still collected and logged.
type MonitorConfig struct {
	Host       string   `yaml:"host"`
	Token      string   `yaml:"token"`
	SubmitPath string   `yaml:"submit_path"`
	Subject    string   `yaml:"subject"`
	Timeout    Duration `yaml:"timeout"`
}

// CollectionConfig holds watch-cycle scheduling settings.
type CollectionConfig struct {
	Interval     Duration `yaml:"interval"`
	CycleTimeout Duration `yaml:"cycle_timeout"`
	HTTPTimeout  Duration `yaml:"http_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig holds the Prometheus listener settings. An empty Listen
// disables the endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// PM2Config locates the pm2 binary.
type PM2Config struct {
	Bin string `yaml:"bin"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			SubmitPath: "/api/reports",
			Subject:    "svcwatch.reports",
			Timeout:    Duration{10 * time.Second},
		},
		Collection: CollectionConfig{
			Interval:     Duration{60 * time.Second},
			CycleTimeout: Duration{45 * time.Second},
			HTTPTimeout:  Duration{10 * time.Second},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Metrics: MetricsConfig{
			Listen: "",
			Path:   "/metrics",
		},
		PM2: PM2Config{
			Bin: "pm2",
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	MonitorHost string
	LogLevel    string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cli.MonitorHost != "" {
		cfg.Monitor.Host = cli.MonitorHost
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("SVCWATCH_MONITOR_HOST"); host != "" {
		cfg.Monitor.Host = host
	}
	if token := os.Getenv("SVCWATCH_MONITOR_TOKEN"); token != "" {
		cfg.Monitor.Token = token
	}
	if level := os.Getenv("SVCWATCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if listen := os.Getenv("SVCWATCH_METRICS_LISTEN"); listen != "" {
		cfg.Metrics.Listen = listen
	}
}

// Validate checks that the configuration is usable. Instance types are
// checked here so a bad service fails at startup rather than every cycle.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}

	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection.interval must be positive (got: %s)", c.Collection.Interval.Duration)
	}
	if c.Collection.CycleTimeout.Duration < 0 {
		return fmt.Errorf("collection.cycle_timeout must not be negative (got: %s)", c.Collection.CycleTimeout.Duration)
	}

	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		if strings.TrimSpace(svc.Name) == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if seen[svc.Name] {
			return fmt.Errorf("services[%d]: duplicate service %q", i, svc.Name)
		}
		seen[svc.Name] = true

		if err := svc.validate(); err != nil {
			return fmt.Errorf("service %s: %w", svc.Name, err)
		}
	}

	if c.Monitor.Host != "" {
		if err := validateMonitorHost(c.Monitor.Host); err != nil {
			return err
		}
	}
	return nil
}

func (s ServiceConfig) validate() error {
	if _, err := process.SelectStrategy(s.InstanceType); err != nil {
		return err
	}
	if _, err := regexp.Compile(s.Pattern()); err != nil {
		return fmt.Errorf("invalid command_pattern: %w", err)
	}
	if s.DiskPattern != "" {
		if _, err := regexp.Compile(s.DiskPattern); err != nil {
			return fmt.Errorf("invalid disk_pattern: %w", err)
		}
	}
	if s.HTTP != nil && s.HTTP.URI == "" {
		return fmt.Errorf("http.uri is required")
	}
	if s.RPC != nil && (s.RPC.URI == "" || s.RPC.Method == "") {
		return fmt.Errorf("rpc.uri and rpc.method are required")
	}
	if s.PriceFeed != nil && s.PriceFeed.URI == "" {
		return fmt.Errorf("price_feed.uri is required")
	}
	return nil
}

// validateMonitorHost requires HTTPS for remote hosts, allowing plain HTTP
// for localhost and NATS URLs.
func validateMonitorHost(host string) error {
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("invalid monitor host: %w", err)
	}
	switch u.Scheme {
	case "https", "nats", "tls":
		return nil
	case "http":
		h := u.Hostname()
		if h == "localhost" || h == "127.0.0.1" || h == "::1" {
			return nil
		}
		return fmt.Errorf("monitor host must use HTTPS (got: %s)", host)
	default:
		return fmt.Errorf("unsupported monitor host scheme %q", u.Scheme)
	}
}
