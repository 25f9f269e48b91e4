package config

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/svcwatch/internal/transport"
)

// ServiceConfig identifies one watched service and its collectors.
type ServiceConfig struct {
	Name              string    `yaml:"name"`
	InstanceType      string    `yaml:"instance_type"`
	CommandPattern    string    `yaml:"command_pattern,omitempty"`
	ServiceID         string    `yaml:"service_id,omitempty"`
	HTTP              *HTTPSpec `yaml:"http,omitempty"`
	ResponseField     string    `yaml:"response_field,omitempty"`
	RPC               *RPCSpec  `yaml:"rpc,omitempty"`
	CheckDisk         DiskCheck `yaml:"check_disk,omitempty"`
	DiskPattern       string    `yaml:"disk_pattern,omitempty"`
	PriceFeed         *HTTPSpec `yaml:"price_feed,omitempty"`
	MakeSupportWallet string    `yaml:"make_support_wallet,omitempty"`
	SkipWatch         SkipWatch `yaml:"skip_watch,omitempty"`
}

// Pattern returns the process-table command pattern, defaulting to the
// literal service name.
func (s ServiceConfig) Pattern() string {
	if s.CommandPattern != "" {
		return s.CommandPattern
	}
	return regexp.QuoteMeta(s.Name)
}

// HTTPSpec describes an HTTP request made by a collector.
type HTTPSpec struct {
	Method  string            `yaml:"method,omitempty"`
	URI     string            `yaml:"uri"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Query   map[string]string `yaml:"query,omitempty"`
	Body    any               `yaml:"body,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// Request builds the transport request for the probe.
func (h HTTPSpec) Request() transport.Request {
	return transport.Request{
		Method:  h.Method,
		URL:     h.URI,
		Headers: h.Headers,
		Query:   h.Query,
		Body:    h.Body,
		Timeout: h.Timeout.Duration,
	}
}

// RPCSpec describes a JSON-RPC call and the chain it reports for.
type RPCSpec struct {
	URI     string            `yaml:"uri"`
	Method  string            `yaml:"method"`
	Params  []any             `yaml:"params,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Chain   string            `yaml:"chain,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// Request builds the JSON-RPC request for the probe.
func (r RPCSpec) Request() transport.RPCRequest {
	return transport.RPCRequest{
		URL:     r.URI,
		Method:  r.Method,
		Params:  r.Params,
		Headers: r.Headers,
		Timeout: r.Timeout.Duration,
	}
}

// DiskCheck enables the disk collector. In YAML it is either a boolean or
// a list of filesystem devices to report; an empty list reports none.
type DiskCheck struct {
	Enabled     bool
	Filesystems []string
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for DiskCheck.
func (d *DiskCheck) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var enabled bool
		if err := value.Decode(&enabled); err != nil {
			return fmt.Errorf("check_disk: %w", err)
		}
		d.Enabled = enabled
		d.Filesystems = nil
		return nil
	case yaml.SequenceNode:
		var fs []string
		if err := value.Decode(&fs); err != nil {
			return fmt.Errorf("check_disk: %w", err)
		}
		if fs == nil {
			fs = []string{}
		}
		d.Enabled = true
		d.Filesystems = fs
		return nil
	default:
		return fmt.Errorf("check_disk must be a boolean or a list, got %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for DiskCheck.
func (d DiskCheck) MarshalYAML() (interface{}, error) {
	if d.Filesystems != nil {
		return d.Filesystems, nil
	}
	return d.Enabled, nil
}

// IsZero lets omitempty drop a disabled check.
func (d DiskCheck) IsZero() bool {
	return !d.Enabled && d.Filesystems == nil
}

// SkipWatch zeroes selected resource metrics in the report.
type SkipWatch struct {
	CPUUsage    bool `yaml:"cpu_usage,omitempty"`
	MemoryUsage bool `yaml:"memory_usage,omitempty"`
}
