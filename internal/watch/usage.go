package watch

import (
	"github.com/Guliveer/svcwatch/internal/collector"
	"github.com/Guliveer/svcwatch/internal/models"
)

// Usage is the aggregate resource usage of a service's instances.
type Usage struct {
	CPU    float64
	Memory float64
}

// ComputeUsage sums CPU and memory fractions across instances and rounds
// the totals. totalMemory normalizes byte-measured instances.
func ComputeUsage(instances []models.Instance, totalMemory uint64) Usage {
	var u Usage
	for _, inst := range instances {
		u.CPU += inst.CPUFraction()
		u.Memory += inst.MemoryFraction(totalMemory)
	}
	u.CPU = collector.Round(u.CPU)
	u.Memory = collector.Round(u.Memory)
	return u
}

// suppress zeroes the metrics the service opted out of.
func (u Usage) suppress(skipCPU, skipMemory bool) Usage {
	if skipCPU {
		u.CPU = 0
	}
	if skipMemory {
		u.Memory = 0
	}
	return u
}
