// Package config loads the extension server configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Power allow-list backends.
const (
	AllowListMemory = "memory"
	AllowListRedis  = "redis"
)

// DefaultPath is where the configuration is looked up when no path is given.
var DefaultPath = filepath.Join("config", "extension_server.yaml")

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the extension server configuration.
type Config struct {
	// Services is the ordered list of extension service identifiers.
	Services []string `yaml:"services"`

	CompanionApp string `yaml:"companion_app"`
	BackupUser   int    `yaml:"backup_user"`
	BackupDir    string `yaml:"backup_dir"`

	// Features declared by the device.
	Features []string `yaml:"features"`

	// AllowInPowerSave is the system power-save allow list.
	AllowInPowerSave []string `yaml:"allow_in_power_save"`

	// PropertiesFile is a JSON snapshot of system properties. When empty
	// every property read fails and the boot runs in normal mode.
	PropertiesFile string `yaml:"properties_file"`

	PowerAllowList PowerAllowList `yaml:"power_allowlist"`
	Log            Log            `yaml:"log"`
	MetricsAddr    string         `yaml:"metrics_addr"`
}

// PowerAllowList selects where battery optimization exemptions live.
type PowerAllowList struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides are the settings that may come from the environment.
type envOverrides struct {
	LogLevel    string `env:"EXT_SERVER_LOG_LEVEL"`
	LogFormat   string `env:"EXT_SERVER_LOG_FORMAT"`
	MetricsAddr string `env:"EXT_SERVER_METRICS_ADDR"`
	RedisAddr   string `env:"EXT_SERVER_REDIS_ADDR"`
}

// PathFromEnv returns the config path from EXT_SERVER_CONFIG, or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("EXT_SERVER_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Services:     []string{"devicepolicy", "telemetry"},
		CompanionApp: "com.ariel.guardian",
		BackupUser:   0,
		BackupDir:    filepath.Join(os.TempDir(), "extension_server", "backup"),
		Features:     []string{"ariel.software.devicepolicy"},
		PowerAllowList: PowerAllowList{
			Backend: AllowListMemory,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		MetricsAddr: ":9102",
	}
}

// Load reads the configuration at path and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML on top of Default, applies environment
// overrides and validates the result.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist. Any other error is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from EXT_SERVER_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return fmt.Errorf("failed to decode environment: %w", err)
	}

	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.MetricsAddr != "" {
		c.MetricsAddr = env.MetricsAddr
	}
	if env.RedisAddr != "" {
		c.PowerAllowList.Backend = AllowListRedis
		c.PowerAllowList.RedisAddr = env.RedisAddr
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CompanionApp) == "" {
		return fmt.Errorf("%w: companion_app is required", ErrInvalidConfig)
	}
	if c.BackupUser < 0 {
		return fmt.Errorf("%w: backup_user must not be negative", ErrInvalidConfig)
	}

	switch c.PowerAllowList.Backend {
	case "", AllowListMemory:
	case AllowListRedis:
		if c.PowerAllowList.RedisAddr == "" {
			return fmt.Errorf("%w: power_allowlist.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown power_allowlist backend %q", ErrInvalidConfig, c.PowerAllowList.Backend)
	}
	return nil
}
