package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is unset.
const DefaultPath = "tada.yaml"

// Config holds all tada configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Persist PersistConfig `yaml:"persist"`
	IDs     IDsConfig     `yaml:"ids"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`
}

// StorageConfig selects the key-value slot backing the todo list.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file, sqlite, memory
	Dir     string `yaml:"dir"`     // file backend
	Path    string `yaml:"path"`    // sqlite backend
	Key     string `yaml:"key"`
}

// PersistConfig selects when mutations are written back.
type PersistConfig struct {
	Policy   string `yaml:"policy"` // immediate, debounce, manual
	Debounce string `yaml:"debounce"`
}

type IDsConfig struct {
	Generator string `yaml:"generator"` // monotonic, random
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type UIConfig struct {
	Theme string `yaml:"theme"` // classic, neon, mono
	Group bool   `yaml:"group"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	PolicyImmediate = "immediate"
	PolicyDebounce  = "debounce"
	PolicyManual    = "manual"

	GeneratorMonotonic = "monotonic"
	GeneratorRandom    = "random"
)

// DefaultConfig returns a configuration that reproduces the app's behavior:
// a "todos" slot in the working directory, written after every change.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     ".",
			Path:    "todos.db",
			Key:     "todos",
		},
		Persist: PersistConfig{
			Policy:   PolicyImmediate,
			Debounce: "250ms",
		},
		IDs: IDsConfig{
			Generator: GeneratorMonotonic,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme: "classic",
		},
	}
}

// Load reads a YAML config on top of the defaults and applies env overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func (c *Config) applyEnvOverrides() {
	for env, dst := range map[string]*string{
		"TADA_BACKEND":   &c.Storage.Backend,
		"TADA_DIR":       &c.Storage.Dir,
		"TADA_DB":        &c.Storage.Path,
		"TADA_KEY":       &c.Storage.Key,
		"TADA_POLICY":    &c.Persist.Policy,
		"TADA_THEME":     &c.UI.Theme,
		"TADA_LOG_LEVEL": &c.Logging.Level,
		"TADA_LOG_FILE":  &c.Logging.File,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

// Validate rejects values the rest of the program can't act on.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("storage.key: must not be empty")
	}
	switch c.Persist.Policy {
	case PolicyImmediate, PolicyManual:
	case PolicyDebounce:
		if _, err := c.DebounceInterval(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("persist.policy: unknown policy %q", c.Persist.Policy)
	}
	switch c.IDs.Generator {
	case GeneratorMonotonic, GeneratorRandom:
	default:
		return fmt.Errorf("ids.generator: unknown generator %q", c.IDs.Generator)
	}
	return nil
}

// DebounceInterval parses persist.debounce.
func (c *Config) DebounceInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Persist.Debounce)
	if err != nil {
		return 0, fmt.Errorf("persist.debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("persist.debounce: must be positive, got %s", d)
	}
	return d, nil
}
