package types

import "path/filepath"

// Config is the resolved runtime configuration. Precedence for every
// field is command-line flag, then config file, then environment
// variable, then platform default; internal/paths and the CLI layer
// perform the resolution.
type Config struct {
	// DataDir holds the database and the trail directory.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// DatabaseFile is the SQLite file name inside DataDir.
	DatabaseFile string `json:"database_file" mapstructure:"database_file"`

	// TrailDir is the directory of per-session trail files inside
	// DataDir.
	TrailDir string `json:"trail_dir" mapstructure:"trail_dir"`

	// TrailEnabled turns trail appends on. Replay runs with it off so
	// rebuilding never re-logs its own writes.
	TrailEnabled bool `json:"trail_enabled" mapstructure:"trail_enabled"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns the configuration used when nothing overrides
// it. DataDir is left empty; internal/paths fills in the platform
// default.
func DefaultConfig() Config {
	return Config{
		DatabaseFile: "casefile.db",
		TrailDir:     "trail",
		TrailEnabled: true,
		LogLevel:     "info",
	}
}

// DatabasePath returns the absolute path of the SQLite file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// TrailPath returns the absolute path of the trail directory.
func (c *Config) TrailPath() string {
	return filepath.Join(c.DataDir, c.TrailDir)
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return WrapInvalid("data_dir is empty")
	}
	if c.DatabaseFile == "" {
		return WrapInvalid("database_file is empty")
	}
	if c.TrailDir == "" {
		return WrapInvalid("trail_dir is empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return WrapInvalid("unknown log level %q", c.LogLevel)
	}
	return nil
}
