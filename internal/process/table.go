// Process-table enumerator. It scans the OS process table for commands that
// match a pattern. Uses gopsutil for cross-platform process listing.
package process

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/models"
)

// procHandle is the part of a gopsutil process the scanner reads.
type procHandle interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Cmdline(ctx context.Context) (string, error)
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float32, error)
}

// gopsProc adapts *process.Process to procHandle.
type gopsProc struct {
	p *process.Process
}

func (g gopsProc) PID() int32 { return g.p.Pid }

func (g gopsProc) Name(ctx context.Context) (string, error) { return g.p.NameWithContext(ctx) }

func (g gopsProc) Cmdline(ctx context.Context) (string, error) { return g.p.CmdlineWithContext(ctx) }

func (g gopsProc) CPUPercent(ctx context.Context) (float64, error) {
	return g.p.CPUPercentWithContext(ctx)
}

func (g gopsProc) MemoryPercent(ctx context.Context) (float32, error) {
	return g.p.MemoryPercentWithContext(ctx)
}

// listProcesses returns every process visible to the agent.
func listProcesses(ctx context.Context) ([]procHandle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]procHandle, 0, len(procs))
	for _, p := range procs {
		handles = append(handles, gopsProc{p: p})
	}
	return handles, nil
}

// TableEnumerator scans the process table for matching command lines.
// An empty result is not an error: the service is supervised elsewhere.
type TableEnumerator struct {
	pattern *regexp.Regexp
	list    func(ctx context.Context) ([]procHandle, error)
	selfPID int32
	logger  *zap.Logger
}

// NewTableEnumerator compiles pattern and returns a process-table enumerator.
func NewTableEnumerator(pattern string, logger *zap.Logger) (*TableEnumerator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid command pattern %q: %w", pattern, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableEnumerator{
		pattern: re,
		list:    listProcesses,
		selfPID: int32(os.Getpid()),
		logger:  logger,
	}, nil
}

// Strategy returns StrategyProcessTable.
func (e *TableEnumerator) Strategy() Strategy { return StrategyProcessTable }

// Enumerate returns the processes whose command line matches the pattern.
// Processes that vanish or deny access mid-scan are skipped.
func (e *TableEnumerator) Enumerate(ctx context.Context) ([]models.Instance, error) {
	procs, err := e.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var instances []models.Instance
	for _, p := range procs {
		if p.PID() == e.selfPID {
			continue
		}
		cmdline, err := p.Cmdline(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		if !e.pattern.MatchString(cmdline) {
			continue
		}

		name, _ := p.Name(ctx)
		cpuPct, err := p.CPUPercent(ctx)
		if err != nil {
			e.logger.Debug("Skipping process without CPU stats",
				zap.Int32("pid", p.PID()),
				zap.Error(err))
			continue
		}
		memPct, err := p.MemoryPercent(ctx)
		if err != nil {
			e.logger.Debug("Skipping process without memory stats",
				zap.Int32("pid", p.PID()),
				zap.Error(err))
			continue
		}

		instances = append(instances, models.Instance{
			PID:           p.PID(),
			Name:          name,
			CPUPercent:    cpuPct,
			MemoryPercent: float64(memPct),
			Measure:       models.MemoryPercent,
		})
	}

	if len(instances) == 0 {
		e.logger.Debug("No process matched command pattern",
			zap.String("pattern", e.pattern.String()))
	}
	return instances, nil
}
