package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/casefile/internal/paths"
	"github.com/mesh-intelligence/casefile/pkg/types"
)

// loadConfig resolves the runtime configuration. Precedence per field:
// command-line flag, config.yaml in the config directory, environment
// variable, platform default.
func loadConfig(flags *rootFlags) (types.Config, error) {
	cfg := types.DefaultConfig()

	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return cfg, fmt.Errorf("resolving config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetDefault("database_file", cfg.DatabaseFile)
	v.SetDefault("trail_dir", cfg.TrailDir)
	v.SetDefault("trail_enabled", cfg.TrailEnabled)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is the common case; anything else is a
		// broken file the user should hear about.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading %s: %w", filepath.Join(configDir, "config.yaml"), err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, v.GetString("data_dir"))
	if err != nil {
		return cfg, fmt.Errorf("resolving data dir: %w", err)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.noTrail {
		cfg.TrailEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
