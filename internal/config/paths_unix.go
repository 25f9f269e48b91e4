//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"svcwatch.yaml",
		filepath.Join(home, ".svcwatch", "config.yaml"),
		"/etc/svcwatch/svcwatch.yaml",
	}
}
