package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-scfg/internal/log"
	"github.com/l3aro/go-scfg/pkg/bytecode"
)

// Config holds all configuration for scfg
type Config struct {
	// OpcodeTable is the path of a YAML opcode table. Empty selects the
	// built-in CPython table.
	OpcodeTable string `yaml:"opcode_table" env:"SCFG_OPCODE_TABLE"`

	// InstructionWidth overrides the width of the selected table; 0 keeps it.
	InstructionWidth int `yaml:"instruction_width" env:"SCFG_INSTRUCTION_WIDTH"`

	// Logging
	LogLevel string `yaml:"log_level" env:"SCFG_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"SCFG_JSON_LOGS"`
	Verbose  bool   `yaml:"verbose" env:"SCFG_VERBOSE"`

	// Restructured graph cache
	CacheEnabled bool   `yaml:"cache_enabled" env:"SCFG_CACHE_ENABLED"`
	CacheDir     string `yaml:"cache_dir" env:"SCFG_CACHE_DIR"`
	CacheSize    int    `yaml:"cache_size" env:"SCFG_CACHE_SIZE"`

	// Verify checks every restructured graph before it is printed or cached
	Verify bool `yaml:"verify" env:"SCFG_VERIFY"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OpcodeTable:      "",
		InstructionWidth: 0,
		LogLevel:         "info",
		JSONLogs:         false,
		Verbose:          false,
		CacheEnabled:     true,
		CacheDir:         defaultCacheDir(),
		CacheSize:        256,
		Verify:           true,
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".scfg", "cache")
	}
	return filepath.Join(home, ".scfg", "cache")
}

// GlobalConfigFilePath returns the global config file path (~/.scfg/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ProjectConfigFilePath()
	}
	return filepath.Join(home, ".scfg", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.scfg/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".scfg", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.scfg/config.yaml)
// 3. Global config (~/.scfg/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SCFG_OPCODE_TABLE"); v != "" {
		cfg.OpcodeTable = v
	}
	if v := os.Getenv("SCFG_INSTRUCTION_WIDTH"); v != "" {
		i, err := parseInt(v)
		if err != nil {
			return fmt.Errorf("SCFG_INSTRUCTION_WIDTH: %w", err)
		}
		cfg.InstructionWidth = i
	}
	if v := os.Getenv("SCFG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCFG_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("SCFG_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("SCFG_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("SCFG_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("SCFG_CACHE_SIZE"); v != "" {
		i, err := parseInt(v)
		if err != nil {
			return fmt.Errorf("SCFG_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = i
	}
	if v := os.Getenv("SCFG_VERIFY"); v != "" {
		cfg.Verify = parseBool(v)
	}
	return nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.InstructionWidth < 0 {
		return fmt.Errorf("instruction_width must be non-negative")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative")
	}
	if c.CacheEnabled && c.CacheDir == "" {
		return fmt.Errorf("cache_dir must be set when the cache is enabled")
	}
	return nil
}

// Level returns the effective log level. Verbose forces debug.
func (c *Config) Level() log.Level {
	if c.Verbose {
		return log.DebugLevel
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Table loads the configured opcode table and applies the width override.
func (c *Config) Table() (*bytecode.Table, error) {
	table := bytecode.DefaultTable()
	if c.OpcodeTable != "" {
		t, err := bytecode.LoadTable(c.OpcodeTable)
		if err != nil {
			return nil, err
		}
		table = t
	}
	if c.InstructionWidth > 0 {
		table.Width = c.InstructionWidth
	}
	return table, nil
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) (int, error) {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return i, nil
}
