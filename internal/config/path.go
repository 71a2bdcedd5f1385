// Package config provides configuration loading for the giving analytics job.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultDatabasePath is where the giving database lives when database.path
// is not configured.
const DefaultDatabasePath = "$HOME/.local/share/giving/giving.db"

// ExpandPath resolves a configured file path such as database.path, the
// --database flag or a --giver-map file. A leading ~ becomes the user's home
// directory and $VAR references are replaced from the environment, so the
// same config file works for every user that runs the job or the scheduler.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~":
		path = homeDir(path)
	case strings.HasPrefix(path, "~/"):
		if home := homeDir(""); home != "" {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// DatabasePath returns the expanded database location, falling back to
// DefaultDatabasePath.
func DatabasePath(configured string) string {
	if strings.TrimSpace(configured) == "" {
		configured = DefaultDatabasePath
	}
	return ExpandPath(configured)
}

func homeDir(fallback string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return home
}
