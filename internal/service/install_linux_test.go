//go:build linux

package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubSystemctl(t *testing.T) *[]string {
	t.Helper()
	var calls []string
	orig := systemctl
	systemctl = func(args ...string) error {
		calls = append(calls, strings.Join(args, " "))
		return nil
	}
	t.Cleanup(func() { systemctl = orig })
	return &calls
}

func TestInstallUninstall(t *testing.T) {
	origPath := unitPath
	unitPath = filepath.Join(t.TempDir(), unitName)
	t.Cleanup(func() { unitPath = origPath })
	calls := stubSystemctl(t)

	if err := Install("/opt/svc watch/svcwatch", "-config", "/etc/svcwatch/svcwatch.yaml"); err != nil {
		t.Fatalf("Install: %v", err)
	}

	data, err := os.ReadFile(unitPath)
	if err != nil {
		t.Fatalf("reading unit: %v", err)
	}
	want := `ExecStart="/opt/svc watch/svcwatch" -config /etc/svcwatch/svcwatch.yaml`
	if !strings.Contains(string(data), want) {
		t.Errorf("unit missing %q:\n%s", want, data)
	}

	if err := Install("/usr/bin/svcwatch"); err == nil {
		t.Error("second Install should fail while the unit exists")
	}

	if err := Uninstall(); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(unitPath); !os.IsNotExist(err) {
		t.Error("unit file should be removed")
	}

	wantCalls := []string{
		"daemon-reload", "enable svcwatch.service", "start svcwatch.service",
		"stop svcwatch.service", "disable svcwatch.service", "daemon-reload",
	}
	if strings.Join(*calls, "|") != strings.Join(wantCalls, "|") {
		t.Errorf("systemctl calls = %v, want %v", *calls, wantCalls)
	}
}
