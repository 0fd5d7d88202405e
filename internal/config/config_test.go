package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFillsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"api_key": "test-key"}`))
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultGeneratedDir, cfg.GeneratedModulesDir)
	assert.Equal(t, DefaultToolchainEnv, cfg.Toolchain.Environment)
	assert.Equal(t, DefaultToolchainTimeout, cfg.Toolchain.TimeoutSeconds)
	assert.True(t, cfg.Toolchain.SimulateEnabled(), "simulate defaults on")
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"port": 8080,
		"data_dir": "/var/lib/forge",
		"toolchain": {
			"simulate": false,
			"project_root": "/opt/firmware",
			"environment": "uad_debug",
			"timeout_seconds": 120
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/var/lib/forge", cfg.DataDir)
	assert.False(t, cfg.Toolchain.SimulateEnabled())
	assert.Equal(t, "uad_debug", cfg.Toolchain.Environment)
	assert.Equal(t, 120, cfg.Toolchain.TimeoutSeconds)
	assert.Equal(t, filepath.Join("/var/lib/forge", "modes.json"), cfg.CatalogPath())
	assert.Equal(t, filepath.Join("/var/lib/forge", "my_modes.json"), cfg.LibraryPath())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "not json"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "9999")

	cfg := DefaultConfig()
	cfg.APIKey = "file-key"
	cfg.ApplyEnv()

	assert.Equal(t, "env-key", cfg.APIKey, "environment wins over file")
	assert.Equal(t, 9999, cfg.Port)
}

func TestApplyEnvIgnoresBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestValidate(t *testing.T) {
	simulate := false
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = -1 }, "port"},
		{"negative timeout", func(c *Config) { c.Toolchain.TimeoutSeconds = -5 }, "timeout_seconds"},
		{
			"real builds need a project root",
			func(c *Config) { c.Toolchain.Simulate = &simulate },
			"project_root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.GeneratedModulesDir = filepath.Join(base, "gen")
	cfg.CompiledModulesDir = filepath.Join(base, "bin")
	cfg.GeneratedWidgetsDir = filepath.Join(base, "widgets")

	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{cfg.DataDir, cfg.GeneratedModulesDir, cfg.CompiledModulesDir, cfg.GeneratedWidgetsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
