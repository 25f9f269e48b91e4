//go:build linux

package service

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const unitName = "svcwatch.service"

// unitPath is where Install writes the systemd unit.
var unitPath = "/etc/systemd/system/" + unitName

// systemctl runs a systemctl subcommand.
var systemctl = func(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// unitTemplate is the systemd unit written during installation.
// {exec} is replaced with the binary path and its arguments.
const unitTemplate = `[Unit]
Description=svcwatch service-health reporter
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={exec}
Restart=always
RestartSec=10
StandardOutput=journal
StandardError=journal
SyslogIdentifier=svcwatch
NoNewPrivileges=true
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

// Install writes the systemd unit, reloads the daemon and enables and
// starts the service. The reporter needs to see pm2 and the process table,
// so the unit is not sandboxed further.
func Install(exePath string, args ...string) error {
	if _, err := os.Stat(unitPath); err == nil {
		return fmt.Errorf("%s already exists", unitPath)
	}

	unit := strings.ReplaceAll(unitTemplate, "{exec}", execLine(exePath, args))
	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	for _, cmd := range [][]string{
		{"daemon-reload"},
		{"enable", unitName},
		{"start", unitName},
	} {
		if err := systemctl(cmd...); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall stops, disables and removes the systemd unit.
func Uninstall() error {
	// Best effort; the unit may already be inactive.
	_ = systemctl("stop", unitName)
	_ = systemctl("disable", unitName)

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}
	return systemctl("daemon-reload")
}

// execLine quotes arguments containing spaces for ExecStart.
func execLine(exePath string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exePath}, args...) {
		if strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
