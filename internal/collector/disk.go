// Disk usage collector. It parses `df` output for the host's block devices.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/Guliveer/svcwatch/internal/models"
)

// DefaultDiskPattern matches hard-disk partitions such as /dev/sda1.
// Virtualized devices (/dev/xvda, /dev/nvme0n1) need an explicit pattern
// or allow-list.
const DefaultDiskPattern = `^/dev/sd[a-z][0-9]?$`

// DiskQuery returns df-style tabular output whose first line is a header.
type DiskQuery func(ctx context.Context) (string, error)

// DFQuery runs `df -h -P --sync`. -P keeps each filesystem on one line.
func DFQuery(ctx context.Context) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "df", "-h", "-P", "--sync")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("df: %w: %s", err, msg)
		}
		return "", fmt.Errorf("df: %w", err)
	}
	return string(out), nil
}

// DiskCollector reports size, usage and utilization per filesystem device.
type DiskCollector struct {
	query   DiskQuery
	allow   map[string]bool
	pattern *regexp.Regexp
	usesDF  bool
}

// NewDiskCollector creates a disk collector. A non-nil allow list reports
// only those devices, so an empty list reports none; a nil list reports the
// devices matching pattern (DefaultDiskPattern if pattern is empty). A nil
// query runs df.
func NewDiskCollector(query DiskQuery, allow []string, pattern string) (*DiskCollector, error) {
	if pattern == "" {
		pattern = DefaultDiskPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid disk pattern %q: %w", pattern, err)
	}

	c := &DiskCollector{query: query, pattern: re}
	if c.query == nil {
		c.query = DFQuery
		c.usesDF = true
	}
	if allow != nil {
		c.allow = make(map[string]bool, len(allow))
		for _, fs := range allow {
			c.allow[fs] = true
		}
	}
	return c, nil
}

// Name returns the collector identifier.
func (c *DiskCollector) Name() string { return models.KeyDisk }

// Collect runs the disk query. A failing query yields {disk: false};
// malformed percent columns default to zero utilization.
func (c *DiskCollector) Collect(ctx context.Context) Outcome {
	out, err := c.query(ctx)
	if err != nil {
		return degraded(models.Fragment{models.KeyDisk: false}, err)
	}
	return succeeded(models.Fragment{models.KeyDisk: c.parse(out)})
}

// IsAvailable reports whether df can be found when it is the query.
func (c *DiskCollector) IsAvailable() bool {
	if !c.usesDF {
		return true
	}
	_, err := exec.LookPath("df")
	return err == nil
}

// parse turns df rows into per-device usage entries.
func (c *DiskCollector) parse(out string) map[string]any {
	disks := make(map[string]any)

	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || !c.keep(fields[0]) {
			continue
		}
		disks[fields[0]] = map[string]any{
			"size":        column(fields, 1),
			"used":        column(fields, 2),
			"available":   column(fields, 3),
			"utilization": Round(parsePercent(column(fields, 4)) / 100),
		}
	}
	return disks
}

func (c *DiskCollector) keep(fs string) bool {
	if c.allow != nil {
		return c.allow[fs]
	}
	return c.pattern.MatchString(fs)
}

func column(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// parsePercent reads the leading integer of a "92%" style column.
// Anything unparsable is 0.
func parsePercent(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return float64(n)
}
