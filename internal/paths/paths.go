// Package paths picks the directories casefile reads configuration
// from and writes data to. Configuration follows the platform
// convention; data defaults to a directory beside the project, so each
// repository carries its own trail and database.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDirName is the leaf directory under the platform config root.
const appDirName = "casefile"

// DefaultDataDirName is the directory created in the working directory
// when nothing overrides the data location.
const DefaultDataDirName = ".casefile-db"

// Environment variable overrides.
const (
	EnvConfigDir = "CASEFILE_CONFIG_DIR"
	EnvDataDir   = "CASEFILE_DATA_DIR"
)

// ResolveConfigDir picks the configuration directory. Precedence: the
// flag, then CASEFILE_CONFIG_DIR, then the platform convention.
// Explicit values come back absolute so later chdirs cannot move the
// config out from under an open command.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok := firstSet(flag, os.Getenv(EnvConfigDir)); ok {
		return filepath.Abs(dir)
	}
	return configDir()
}

// ResolveDataDir picks the data directory. Precedence: the flag, then
// the data_dir value from config.yaml, then CASEFILE_DATA_DIR, then
// $(CWD)/.casefile-db. The working-directory default keeps a
// project's database and trail next to the project itself.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if dir, ok := firstSet(flag, configYAMLValue, os.Getenv(EnvDataDir)); ok {
		return filepath.Abs(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// firstSet returns the first non-empty candidate.
func firstSet(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c != "" {
			return c, true
		}
	}
	return "", false
}

// configDir is the platform convention: $XDG_CONFIG_HOME/casefile on
// Linux falling back to ~/.config/casefile, os.UserConfigDir elsewhere
// (~/Library/Application Support on macOS, %APPDATA% on Windows).
func configDir() (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDirName), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDirName), nil
}
