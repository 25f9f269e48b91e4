// Package process lists the running instances of a watched service.
// Two strategies exist: a pm2-managed strategy that reports absolute memory
// and supports restarts, and a process-table scan for everything else.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Guliveer/svcwatch/internal/models"
)

var (
	// ErrInstanceTypeRequired is returned when the instance type is missing
	// or not one of the known strategies.
	ErrInstanceTypeRequired = errors.New("instance type required")

	// ErrInstanceNotFound is returned by the pm2 strategy when the service
	// has no running instance.
	ErrInstanceNotFound = errors.New("instance not found")
)

// Strategy selects how instances are enumerated.
type Strategy int

const (
	StrategyUnknown Strategy = iota
	StrategyProcessManager
	StrategyProcessTable
)

func (s Strategy) String() string {
	switch s {
	case StrategyProcessManager:
		return "process-manager"
	case StrategyProcessTable:
		return "process-table"
	default:
		return "unknown"
	}
}

// instanceTypes maps normalized instance types to strategies.
var instanceTypes = map[string]Strategy{
	"pm2":             StrategyProcessManager,
	"process-manager": StrategyProcessManager,
	"command":         StrategyProcessTable,
	"command-pattern": StrategyProcessTable,
	"ps":              StrategyProcessTable,
}

// SelectStrategy maps an instance type to its strategy. The value is trimmed
// and lower-cased first; empty or unknown values yield ErrInstanceTypeRequired.
func SelectStrategy(instanceType string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(instanceType))
	if key == "" {
		return StrategyUnknown, ErrInstanceTypeRequired
	}
	s, ok := instanceTypes[key]
	if !ok {
		return StrategyUnknown, fmt.Errorf("%w: unknown instance type %q", ErrInstanceTypeRequired, instanceType)
	}
	return s, nil
}

// Enumerator lists the running instances of one service.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]models.Instance, error)
	Strategy() Strategy
}

// Manager is a process supervisor that can describe and restart services.
//
//go:generate mockgen -destination=mock_manager.go -package=process github.com/Guliveer/svcwatch/internal/process Manager
type Manager interface {
	Describe(ctx context.Context, name string) ([]models.Instance, error)
	Restart(ctx context.Context, name string) error
}

// ManagedEnumerator enumerates a service through a process Manager.
// An empty result is an error: only managed services can be restarted,
// so their absence must be surfaced.
type ManagedEnumerator struct {
	manager Manager
	service string
}

// NewManagedEnumerator creates an enumerator for service backed by manager.
func NewManagedEnumerator(manager Manager, service string) *ManagedEnumerator {
	return &ManagedEnumerator{manager: manager, service: service}
}

// Strategy returns StrategyProcessManager.
func (e *ManagedEnumerator) Strategy() Strategy { return StrategyProcessManager }

// Enumerate returns the managed instances or ErrInstanceNotFound.
func (e *ManagedEnumerator) Enumerate(ctx context.Context) ([]models.Instance, error) {
	instances, err := e.manager.Describe(ctx, e.service)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", e.service, err)
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, e.service)
	}
	return instances, nil
}
