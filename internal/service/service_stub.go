//go:build !windows

// Package service provides a stub implementation for non-Windows platforms.
// Off Windows svcwatch runs as a foreground process; on Linux Install
// registers it with systemd.
package service

import (
	"context"

	"go.uber.org/zap"
)

// WatchService is a no-op service wrapper for non-Windows platforms.
type WatchService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a stub service wrapper for non-Windows platforms.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *WatchService {
	return &WatchService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run executes the scheduler directly.
func (s *WatchService) Run() error {
	s.startFn(context.Background())
	return nil
}

