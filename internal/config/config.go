package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Mosaic configuration
type Config struct {
	Layout   LayoutConfig   `mapstructure:"layout"`
	Activity ActivityConfig `mapstructure:"activity"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Backend  BackendConfig  `mapstructure:"backend"`
	TUI      TUIConfig      `mapstructure:"tui"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LayoutConfig controls pane tree behavior
type LayoutConfig struct {
	// SplitCap is the maximum number of same-direction siblings in one
	// split. Splits beyond the cap are refused.
	SplitCap int `mapstructure:"split_cap"`
}

// ActivityConfig controls the activity tracker
type ActivityConfig struct {
	// IdleThresholdMs is how long after the last output a pane counts as
	// active (in milliseconds)
	IdleThresholdMs int `mapstructure:"idle_threshold_ms"`
	// PollIntervalMs is how often idle waits re-check the pane (in milliseconds)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// DispatchConfig controls sequential prompt dispatch
type DispatchConfig struct {
	// WaitCeilingMinutes bounds how long one dispatch step may wait for
	// the pane to go idle (0 = no ceiling)
	WaitCeilingMinutes int `mapstructure:"wait_ceiling_minutes"`
}

// BackendConfig controls shell session creation
type BackendConfig struct {
	// Shell overrides the login shell. Empty uses $SHELL, falling back
	// to /bin/zsh.
	Shell string `mapstructure:"shell"`
	// Rows is the initial terminal height for new sessions
	Rows int `mapstructure:"rows"`
	// Cols is the initial terminal width for new sessions
	Cols int `mapstructure:"cols"`
	// CwdTimeoutMs bounds working-directory queries (in milliseconds)
	CwdTimeoutMs int `mapstructure:"cwd_timeout_ms"`
}

// TUIConfig controls the terminal UI behavior
type TUIConfig struct {
	// ScrollbackLines limits how many lines of output each pane retains
	ScrollbackLines int `mapstructure:"scrollback_lines"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for log files. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			SplitCap: 4,
		},
		Activity: ActivityConfig{
			IdleThresholdMs: 3000,
			PollIntervalMs:  1000,
		},
		Dispatch: DispatchConfig{
			WaitCeilingMinutes: 10,
		},
		Backend: BackendConfig{
			Shell:        "", // Empty means use $SHELL
			Rows:         24,
			Cols:         80,
			CwdTimeoutMs: 1000,
		},
		TUI: TUIConfig{
			ScrollbackLines: 1000,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// IdleThreshold returns the idle threshold as a time.Duration
func (c *ActivityConfig) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdMs) * time.Millisecond
}

// PollInterval returns the poll interval as a time.Duration
func (c *ActivityConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// WaitCeiling returns the dispatch wait ceiling as a time.Duration (0 means no ceiling)
func (c *DispatchConfig) WaitCeiling() time.Duration {
	return time.Duration(c.WaitCeilingMinutes) * time.Minute
}

// CwdTimeout returns the working-directory query timeout as a time.Duration
func (c *BackendConfig) CwdTimeout() time.Duration {
	return time.Duration(c.CwdTimeoutMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Layout defaults
	viper.SetDefault("layout.split_cap", defaults.Layout.SplitCap)

	// Activity defaults
	viper.SetDefault("activity.idle_threshold_ms", defaults.Activity.IdleThresholdMs)
	viper.SetDefault("activity.poll_interval_ms", defaults.Activity.PollIntervalMs)

	// Dispatch defaults
	viper.SetDefault("dispatch.wait_ceiling_minutes", defaults.Dispatch.WaitCeilingMinutes)

	// Backend defaults
	viper.SetDefault("backend.shell", defaults.Backend.Shell)
	viper.SetDefault("backend.rows", defaults.Backend.Rows)
	viper.SetDefault("backend.cols", defaults.Backend.Cols)
	viper.SetDefault("backend.cwd_timeout_ms", defaults.Backend.CwdTimeoutMs)

	// TUI defaults
	viper.SetDefault("tui.scrollback_lines", defaults.TUI.ScrollbackLines)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mosaic")
	}
	// Fall back to ~/.config/mosaic
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mosaic"
	}
	return filepath.Join(home, ".config", "mosaic")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
