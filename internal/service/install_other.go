//go:build !windows && !linux

package service

import "errors"

// ErrUnsupported is returned by Install and Uninstall where svcwatch has no
// service manager integration.
var ErrUnsupported = errors.New("service installation is not supported on this platform")

// Install is not supported on this platform.
func Install(exePath string, args ...string) error {
	return ErrUnsupported
}

// Uninstall is not supported on this platform.
func Uninstall() error {
	return ErrUnsupported
}
