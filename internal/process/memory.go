package process

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// TotalMemory returns the total physical memory of the host in bytes.
func TotalMemory(ctx context.Context) (uint64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return v.Total, nil
}
