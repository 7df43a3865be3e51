package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const configTemplate = `# Stock Academy Configuration
#
# ACADEMY_DB_PATH, ACADEMY_LOG_LEVEL and ACADEMY_READ_ONLY override these
# settings. They are read from the environment or from a .env file next to
# this one.

[portfolio]
# Starting cash for a fresh or reset portfolio (USD)
initial_cash = 100000.0
# Number of resets granted before a request must be filed
max_resets = 3
# Trades kept in the in-memory history (oldest are dropped)
max_trades = 100
# Pending reset requests kept (oldest are dropped)
max_reset_requests = 10

[review]
# Number of due terms listed per session
session_size = 20
# Also list terms due within this window (e.g., "12h", "0s")
due_window = "0s"

[storage]
# SQLite database path (defaults to ~/.config/stock-academy/academy.db)
# db_path = ""

[logging]
# Log level: debug, info, warn, error
level = "info"
# Also log to stderr
console = false
# Log to a rotating file
file = true
# max_size in MB, max_age in days
max_size = 20
max_backups = 5
max_age = 30

[security]
# Enable read-only mode (blocks trades, resets and grading)
read_only_mode = false
# Enable audit logging for all learner actions
audit_enabled = true
# Reject share counts and prices above the sanity limits
strict_validation = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
# Time format
time_format = "15:04:05"
`

// Window parses the configured due look-ahead.
func (r ReviewConfig) Window() (time.Duration, error) {
	if r.DueWindow == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.DueWindow)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("window must not be negative: %s", r.DueWindow)
	}
	return d, nil
}

// ConfigPath returns the config file location within configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := ConfigPath(configDir)
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
