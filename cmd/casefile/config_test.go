package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	flags := &rootFlags{
		configDir: t.TempDir(),
		dataDir:   t.TempDir(),
	}
	cfg, err := loadConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, flags.dataDir, cfg.DataDir)
	assert.Equal(t, "casefile.db", cfg.DatabaseFile)
	assert.Equal(t, "trail", cfg.TrailDir)
	assert.True(t, cfg.TrailEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	body := "database_file: custom.db\nlog_level: debug\ntrail_enabled: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(body), 0o644))

	cfg, err := loadConfig(&rootFlags{configDir: configDir, dataDir: dataDir})
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.DatabaseFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.TrailEnabled)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	configDir := t.TempDir()
	body := "log_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(body), 0o644))

	cfg, err := loadConfig(&rootFlags{
		configDir: configDir,
		dataDir:   t.TempDir(),
		logLevel:  "warn",
		noTrail:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.TrailEnabled)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("log_level: [unclosed\n"), 0o644))

	_, err := loadConfig(&rootFlags{configDir: configDir, dataDir: t.TempDir()})
	require.Error(t, err)
}
