package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TADA_BACKEND", "TADA_DIR", "TADA_DB", "TADA_KEY",
		"TADA_POLICY", "TADA_THEME", "TADA_LOG_LEVEL", "TADA_LOG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "todos", cfg.Storage.Key)
	assert.Equal(t, PolicyImmediate, cfg.Persist.Policy)
	assert.Equal(t, GeneratorMonotonic, cfg.IDs.Generator)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "tada.yaml")

	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.Path = "/tmp/x.db"
	cfg.Persist.Policy = PolicyDebounce
	cfg.Persist.Debounce = "1s"
	cfg.UI.Group = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tada.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: neon\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "neon", cfg.UI.Theme)
	assert.Equal(t, "todos", cfg.Storage.Key)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TADA_BACKEND", "memory")
	t.Setenv("TADA_KEY", "work")
	t.Setenv("TADA_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "work", cfg.Storage.Key)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tada.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [oops"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"empty key", func(c *Config) { c.Storage.Key = "  " }, "storage.key"},
		{"unknown policy", func(c *Config) { c.Persist.Policy = "sometimes" }, "persist.policy"},
		{"bad debounce", func(c *Config) {
			c.Persist.Policy = PolicyDebounce
			c.Persist.Debounce = "soon"
		}, "persist.debounce"},
		{"zero debounce", func(c *Config) {
			c.Persist.Policy = PolicyDebounce
			c.Persist.Debounce = "0s"
		}, "must be positive"},
		{"unknown generator", func(c *Config) { c.IDs.Generator = "sequential" }, "ids.generator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestDebounceInterval(t *testing.T) {
	cfg := DefaultConfig()
	d, err := cfg.DebounceInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}
