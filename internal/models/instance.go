package models

// MemoryMeasure tells how an Instance reports its memory consumption.
type MemoryMeasure int

const (
	// MemoryBytes means MemoryBytes holds absolute resident bytes.
	MemoryBytes MemoryMeasure = iota
	// MemoryPercent means MemoryPercent holds a 0-100 share of system memory.
	MemoryPercent
)

// Instance is one running process counted toward a service's usage.
type Instance struct {
	PID           int32         `json:"pid"`
	Name          string        `json:"name"`
	CPUPercent    float64       `json:"cpu"`
	MemoryBytes   uint64        `json:"memory_bytes,omitempty"`
	MemoryPercent float64       `json:"memory_percent,omitempty"`
	Measure       MemoryMeasure `json:"-"`
}

// CPUFraction returns the instance CPU usage on a 0-1 scale per core.
func (i Instance) CPUFraction() float64 {
	return i.CPUPercent / 100
}

// MemoryFraction returns the instance memory usage as a share of total
// physical memory. totalMemory is only consulted for byte measurements.
func (i Instance) MemoryFraction(totalMemory uint64) float64 {
	switch i.Measure {
	case MemoryPercent:
		return i.MemoryPercent / 100
	default:
		if totalMemory == 0 {
			return 0
		}
		return float64(i.MemoryBytes) / float64(totalMemory)
	}
}
