//go:build windows

// Package service provides Windows Service integration.
// When running as a Windows service, svcwatch enters the SCM control loop.
// When running from a terminal, it runs in foreground.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	serviceName = "svcwatch"
	displayName = "svcwatch service-health reporter"

	// stopGrace bounds how long Stop waits for the running cycle.
	stopGrace = 30 * time.Second
)

// WatchService implements svc.Handler around the scheduler loop.
type WatchService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a Windows service wrapper.
// startFn is called with a context that is cancelled on Stop or Shutdown.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *WatchService {
	return &WatchService{
		logger:  logger.Named("service"),
		startFn: startFn,
	}
}

// IsWindowsService checks if the process is running as a Windows service.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run starts the Windows service control loop.
func (s *WatchService) Run() error {
	return svc.Run(serviceName, s)
}

// Execute implements svc.Handler.
func (s *WatchService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.startFn(ctx)
	}()

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Windows service started")

	for {
		select {
		case <-done:
			s.logger.Warn("Scheduler exited, stopping service")
			changes <- svc.Status{State: svc.StopPending}
			return false, 0
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s.logger.Info("Windows service stopping")
				changes <- svc.Status{State: svc.StopPending, WaitHint: uint32(stopGrace / time.Millisecond)}
				cancel()
				select {
				case <-done:
				case <-time.After(stopGrace):
					s.logger.Warn("Cycle still running at stop deadline")
				}
				return false, 0
			default:
				s.logger.Warn("Unexpected service control request",
					zap.Uint32("cmd", uint32(c.Cmd)))
			}
		}
	}
}

// Install registers exePath with the service control manager, started
// automatically with the given arguments.
func Install(exePath string, args ...string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to service manager: %w", err)
	}
	defer m.Disconnect()

	if existing, err := m.OpenService(serviceName); err == nil {
		existing.Close()
		return fmt.Errorf("service %s already exists", serviceName)
	}

	s, err := m.CreateService(serviceName, exePath, mgr.Config{
		DisplayName: displayName,
		StartType:   mgr.StartAutomatic,
	}, args...)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}
	return s.Close()
}

// Uninstall removes the service registration.
func Uninstall() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("service %s is not installed: %w", serviceName, err)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return errors.Join(fmt.Errorf("deleting service %s", serviceName), err)
	}
	return nil
}
