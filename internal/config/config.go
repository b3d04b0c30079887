// Package config handles configuration management for arena-shell.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Window geometry is
// fixed by the application and intentionally absent.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
}

// APIConfig describes the backend the frontend talks to.
type APIConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	DeviceID string `mapstructure:"device_id" yaml:"device_id"`
}

// HTTPConfig holds the HTTP plugin's scope and limits.
type HTTPConfig struct {
	Allow           []string `mapstructure:"allow" yaml:"allow"`
	Deny            []string `mapstructure:"deny" yaml:"deny"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRedirections int      `mapstructure:"max_redirections" yaml:"max_redirections"`
}

// LoggingConfig holds log plugin configuration. It only takes effect in
// debug builds.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// StoreConfig holds the key/value store location.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SessionConfig holds token refresh timing.
type SessionConfig struct {
	RefreshLeadSeconds int `mapstructure:"refresh_lead_seconds" yaml:"refresh_lead_seconds"`
	MinRefreshSeconds  int `mapstructure:"min_refresh_seconds" yaml:"min_refresh_seconds"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	cfg, err := decode(newViper(""))
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.arena-shell")
	}

	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/v1")
	v.SetDefault("api.device_id", "web-app")

	v.SetDefault("http.allow", []string{"http://localhost:3000/*"})
	v.SetDefault("http.deny", []string{})
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_redirections", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.dir", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("store.path", "")

	v.SetDefault("session.refresh_lead_seconds", 300)
	v.SetDefault("session.min_refresh_seconds", 60)
}

// postProcess fills in paths that depend on the user's home directory.
func postProcess(cfg *Config) error {
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	if cfg.Logging.Dir == "" || cfg.Store.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config directory: %w", err)
		}
		if cfg.Logging.Dir == "" {
			cfg.Logging.Dir = filepath.Join(dir, "logs")
		}
		if cfg.Store.Path == "" {
			cfg.Store.Path = filepath.Join(dir, "store.db")
		}
	}

	return nil
}

// GetConfigDir returns the user config directory for arena-shell.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".arena-shell"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigFileUsed returns the file Load would read for configPath, or "" when
// no config file exists.
func ConfigFileUsed(configPath string) string {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}
