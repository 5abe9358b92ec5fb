// Package paths resolves the configuration directory and the SQLite database
// location for the orphanage CLI.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under platform config roots.
const AppName = "orphanage"

// MemoryDB is the SQLite name of a private in-memory database.
const MemoryDB = ":memory:"

// Environment variable names for overrides.
const (
	EnvConfigDir = "ORPHANAGE_CONFIG_DIR"
	EnvDB        = "ORPHANAGE_DB"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/orphanage (fallback ~/.config/orphanage)
// macOS:   ~/Library/Application Support/orphanage
// Windows: %APPDATA%/orphanage
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > ORPHANAGE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDB returns the SQLite database name following the precedence chain:
// flag > configYAMLValue > ORPHANAGE_DB env > ":memory:". File paths are made
// absolute; ":memory:" is returned unchanged.
func ResolveDB(flag, configYAMLValue string) (string, error) {
	for _, v := range []string{flag, configYAMLValue, os.Getenv(EnvDB)} {
		if v == "" {
			continue
		}
		if v == MemoryDB {
			return v, nil
		}
		return filepath.Abs(v)
	}
	return MemoryDB, nil
}
