// Package config provides configuration management for the learning app.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"stock-academy/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Review    ReviewConfig    `mapstructure:"review"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Security  SecurityConfig  `mapstructure:"security"`
	UI        UIConfig        `mapstructure:"ui"`
}

// PortfolioConfig holds paper trading limits.
type PortfolioConfig struct {
	InitialCash      float64 `mapstructure:"initial_cash"`
	MaxResets        int     `mapstructure:"max_resets"`
	MaxTrades        int     `mapstructure:"max_trades"`
	MaxResetRequests int     `mapstructure:"max_reset_requests"`
}

// ReviewConfig holds flashcard review settings.
type ReviewConfig struct {
	SessionSize int    `mapstructure:"session_size"` // terms listed by "review due"
	DueWindow   string `mapstructure:"due_window"`   // look-ahead, e.g. "12h"
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	ReadOnlyMode     bool   `mapstructure:"read_only_mode"`
	AuditEnabled     bool   `mapstructure:"audit_enabled"`
	AuditDir         string `mapstructure:"audit_dir"`
	StrictValidation bool   `mapstructure:"strict_validation"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-academy"
	}
	return filepath.Join(home, ".config", "stock-academy")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// Config file not found, create template and continue with defaults
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	applyEnvOverrides(cfg, envLookup(configDir))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("portfolio.initial_cash", 100000.0)
	v.SetDefault("portfolio.max_resets", 3)
	v.SetDefault("portfolio.max_trades", 100)
	v.SetDefault("portfolio.max_reset_requests", 10)

	v.SetDefault("review.session_size", 20)
	v.SetDefault("review.due_window", "0s")

	v.SetDefault("storage.db_path", filepath.Join(configDir, "academy.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "academy.log"))
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("security.read_only_mode", false)
	v.SetDefault("security.audit_enabled", true)
	v.SetDefault("security.audit_dir", filepath.Join(configDir, "audit"))
	v.SetDefault("security.strict_validation", true)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.time_format", "15:04:05")
}

// envLookup reads ACADEMY_* settings from the process environment, falling
// back to a .env file in configDir.
func envLookup(configDir string) func(string) string {
	file, _ := godotenv.Read(filepath.Join(configDir, ".env"))
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return file[key]
	}
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := getenv("ACADEMY_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := getenv("ACADEMY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("ACADEMY_READ_ONLY"); v != "" {
		if readOnly, err := strconv.ParseBool(v); err == nil {
			cfg.Security.ReadOnlyMode = readOnly
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Portfolio.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be positive")
	}
	if c.Portfolio.MaxResets < 1 {
		return fmt.Errorf("max_resets must be at least 1")
	}
	if c.Portfolio.MaxTrades < 1 {
		return fmt.Errorf("max_trades must be at least 1")
	}
	if c.Portfolio.MaxResetRequests < 1 {
		return fmt.Errorf("max_reset_requests must be at least 1")
	}
	if c.Review.SessionSize < 0 {
		return fmt.Errorf("session_size must be non-negative")
	}
	if _, err := c.Review.Window(); err != nil {
		return fmt.Errorf("invalid due_window: %w", err)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
