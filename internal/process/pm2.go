package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/Guliveer/svcwatch/internal/models"
)

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec. Standard error is folded into
// the returned error on failure.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// pm2Process is the subset of a `pm2 jlist` entry we read.
type pm2Process struct {
	PID   int32  `json:"pid"`
	Name  string `json:"name"`
	PMID  int    `json:"pm_id"`
	Monit struct {
		Memory uint64  `json:"memory"`
		CPU    float64 `json:"cpu"`
	} `json:"monit"`
}

// PM2 talks to the pm2 process manager through its CLI.
type PM2 struct {
	bin    string
	run    Runner
	logger *zap.Logger
}

// NewPM2 creates a pm2 client. An empty bin defaults to "pm2"; a nil run
// defaults to ExecRunner.
func NewPM2(bin string, run Runner, logger *zap.Logger) *PM2 {
	if bin == "" {
		bin = "pm2"
	}
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PM2{bin: bin, run: run, logger: logger}
}

// Describe returns the pm2 instances whose name equals name.
func (p *PM2) Describe(ctx context.Context, name string) ([]models.Instance, error) {
	out, err := p.run(ctx, p.bin, "jlist")
	if err != nil {
		return nil, err
	}

	procs, err := parseJlist(out)
	if err != nil {
		return nil, err
	}

	var instances []models.Instance
	for _, proc := range procs {
		if proc.Name != name {
			continue
		}
		instances = append(instances, models.Instance{
			PID:         proc.PID,
			Name:        proc.Name,
			CPUPercent:  proc.Monit.CPU,
			MemoryBytes: proc.Monit.Memory,
			Measure:     models.MemoryBytes,
		})
	}

	p.logger.Debug("Described pm2 service",
		zap.String("service", name),
		zap.Int("instances", len(instances)))
	return instances, nil
}

// Restart restarts every pm2 instance of the named service.
func (p *PM2) Restart(ctx context.Context, name string) error {
	if _, err := p.run(ctx, p.bin, "restart", name); err != nil {
		return fmt.Errorf("pm2 restart %s: %w", name, err)
	}
	return nil
}

// parseJlist decodes `pm2 jlist` output. pm2 may print "[PM2] ..." banner
// lines before the JSON array, so the last line that decodes wins.
func parseJlist(out []byte) ([]pm2Process, error) {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	var lastErr error
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if !bytes.HasPrefix(line, []byte("[")) {
			continue
		}
		var procs []pm2Process
		if err := json.Unmarshal(line, &procs); err != nil {
			lastErr = err
			continue
		}
		return procs, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("pm2 jlist: %w", lastErr)
	}
	return nil, errors.New("pm2 jlist: no process list in output")
}
