// Package models defines the data structures shared by the watch pipeline.
// Reports are serialized to JSON for submission to the monitor host.
package models

// Report field names. Keys other than the core and identity keys are
// optional; their presence depends on which collectors are configured.
const (
	KeyCPUUsage    = "cpuUsage"
	KeyMemoryUsage = "memoryUsage"
	KeyServiceName = "serviceName"
	KeyServiceID   = "serviceId"

	KeyHTTP        = "http"
	KeyRPC         = "rpc"
	KeyDisk        = "disk"
	KeyPriceFeed   = "priceFeed"
	KeyBlockNumber = "blockNumber"
)

// coreKeys are set by the resource baseline and never overwritten by fragments.
var coreKeys = map[string]bool{
	KeyCPUUsage:    true,
	KeyMemoryUsage: true,
}

// reservedKeys are stamped by the aggregator after all fragments are merged.
var reservedKeys = map[string]bool{
	KeyServiceName: true,
	KeyServiceID:   true,
}

// Fragment is the partial report contributed by a single collector.
type Fragment map[string]any

// Report is the merged record submitted to the monitor host.
type Report map[string]any

// NewReport creates a report holding the resource baseline.
func NewReport(cpuUsage, memoryUsage float64) Report {
	return Report{
		KeyCPUUsage:    cpuUsage,
		KeyMemoryUsage: memoryUsage,
	}
}

// Merge copies the fragment's keys into the report and returns the keys it
// refused. Precedence rules:
//   - a key not yet in the report is added;
//   - an existing non-core key is overwritten (later collector wins);
//   - core keys already in the report are kept;
//   - reserved identity keys are always refused.
func (r Report) Merge(f Fragment) []string {
	var dropped []string
	for k, v := range f {
		if reservedKeys[k] {
			dropped = append(dropped, k)
			continue
		}
		if _, exists := r[k]; exists && coreKeys[k] {
			dropped = append(dropped, k)
			continue
		}
		r[k] = v
	}
	return dropped
}

// StampIdentity sets the identity keys. An empty serviceID is omitted.
func (r Report) StampIdentity(serviceName, serviceID string) {
	r[KeyServiceName] = serviceName
	if serviceID != "" {
		r[KeyServiceID] = serviceID
	}
}

// SubmitResponse is the monitor host's answer to a report submission.
type SubmitResponse struct {
	Callbacks []string `json:"callbacks,omitempty"`
}
