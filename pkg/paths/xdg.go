// Package paths provides XDG-compliant path resolution for traffisense.
//
// Resolution order:
// 1. TRAFFISENSE_HOME (portable root) → $TRAFFISENSE_HOME/{config,data,state}
// 2. XDG env vars → $XDG_*_HOME/traffisense
// 3. Platform defaults → ~/.config/traffisense, ~/.local/share/traffisense, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "traffisense"

// baseDir resolves one XDG base directory.
func baseDir(xdgEnv string, fallback ...string) string {
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return xdg
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append([]string{homeDir}, fallback...)...)
	}
	return ""
}

func appDir(base string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// ConfigDir returns the configuration directory holding the global traffisense.yml.
func ConfigDir() string {
	if home := os.Getenv("TRAFFISENSE_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	return appDir(baseDir("XDG_CONFIG_HOME", ".config"))
}

// DataDir returns the data directory.
// Used for the report archive and stream recordings.
func DataDir() string {
	if home := os.Getenv("TRAFFISENSE_HOME"); home != "" {
		return filepath.Join(home, "data")
	}
	return appDir(baseDir("XDG_DATA_HOME", ".local", "share"))
}

// StateDir returns the state directory.
func StateDir() string {
	if home := os.Getenv("TRAFFISENSE_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	return appDir(baseDir("XDG_STATE_HOME", ".local", "state"))
}

// GlobalConfigFile returns the path of the global configuration layer.
func GlobalConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traffisense.yml")
}

// ArchivePath returns the default location of the report archive database.
func ArchivePath() string {
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "reports.db")
}

// RecordingsDir returns the default directory for recorded streams.
func RecordingsDir() string {
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "recordings")
}

// EnsureDirs creates all traffisense directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		StateDir(),
		RecordingsDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
