package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "layout.split_cap")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLayout()...)
	errors = append(errors, c.validateActivity()...)
	errors = append(errors, c.validateDispatch()...)
	errors = append(errors, c.validateBackend()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateLayout validates the LayoutConfig
func (c *Config) validateLayout() []ValidationError {
	var errors []ValidationError

	const minSplitCap = 2
	const maxSplitCap = 16

	if c.Layout.SplitCap < minSplitCap {
		errors = append(errors, ValidationError{
			Field:   "layout.split_cap",
			Value:   c.Layout.SplitCap,
			Message: fmt.Sprintf("must be at least %d", minSplitCap),
		})
	}
	if c.Layout.SplitCap > maxSplitCap {
		errors = append(errors, ValidationError{
			Field:   "layout.split_cap",
			Value:   c.Layout.SplitCap,
			Message: fmt.Sprintf("exceeds maximum of %d", maxSplitCap),
		})
	}

	return errors
}

// validateActivity validates the ActivityConfig
func (c *Config) validateActivity() []ValidationError {
	var errors []ValidationError

	const minIdleThreshold = 100   // 100ms minimum
	const maxIdleThreshold = 60000 // 1 minute maximum

	if c.Activity.IdleThresholdMs < minIdleThreshold {
		errors = append(errors, ValidationError{
			Field:   "activity.idle_threshold_ms",
			Value:   c.Activity.IdleThresholdMs,
			Message: fmt.Sprintf("must be at least %dms", minIdleThreshold),
		})
	}
	if c.Activity.IdleThresholdMs > maxIdleThreshold {
		errors = append(errors, ValidationError{
			Field:   "activity.idle_threshold_ms",
			Value:   c.Activity.IdleThresholdMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxIdleThreshold),
		})
	}

	const minPollInterval = 10    // 10ms minimum
	const maxPollInterval = 10000 // 10 seconds maximum

	if c.Activity.PollIntervalMs < minPollInterval {
		errors = append(errors, ValidationError{
			Field:   "activity.poll_interval_ms",
			Value:   c.Activity.PollIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPollInterval),
		})
	}
	if c.Activity.PollIntervalMs > maxPollInterval {
		errors = append(errors, ValidationError{
			Field:   "activity.poll_interval_ms",
			Value:   c.Activity.PollIntervalMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxPollInterval),
		})
	}

	return errors
}

// validateDispatch validates the DispatchConfig
func (c *Config) validateDispatch() []ValidationError {
	var errors []ValidationError

	// 0 means no ceiling, which is valid; negative is invalid
	if c.Dispatch.WaitCeilingMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.wait_ceiling_minutes",
			Value:   c.Dispatch.WaitCeilingMinutes,
			Message: "must be non-negative (0 disables the ceiling)",
		})
	}

	return errors
}

// validateBackend validates the BackendConfig
func (c *Config) validateBackend() []ValidationError {
	var errors []ValidationError

	const minRows = 2
	const maxRows = 500
	const minCols = 2
	const maxCols = 1000

	if c.Backend.Rows < minRows {
		errors = append(errors, ValidationError{
			Field:   "backend.rows",
			Value:   c.Backend.Rows,
			Message: fmt.Sprintf("must be at least %d", minRows),
		})
	}
	if c.Backend.Rows > maxRows {
		errors = append(errors, ValidationError{
			Field:   "backend.rows",
			Value:   c.Backend.Rows,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRows),
		})
	}
	if c.Backend.Cols < minCols {
		errors = append(errors, ValidationError{
			Field:   "backend.cols",
			Value:   c.Backend.Cols,
			Message: fmt.Sprintf("must be at least %d", minCols),
		})
	}
	if c.Backend.Cols > maxCols {
		errors = append(errors, ValidationError{
			Field:   "backend.cols",
			Value:   c.Backend.Cols,
			Message: fmt.Sprintf("exceeds maximum of %d", maxCols),
		})
	}

	const minCwdTimeout = 50    // 50ms minimum
	const maxCwdTimeout = 10000 // 10 seconds maximum

	if c.Backend.CwdTimeoutMs < minCwdTimeout {
		errors = append(errors, ValidationError{
			Field:   "backend.cwd_timeout_ms",
			Value:   c.Backend.CwdTimeoutMs,
			Message: fmt.Sprintf("must be at least %dms", minCwdTimeout),
		})
	}
	if c.Backend.CwdTimeoutMs > maxCwdTimeout {
		errors = append(errors, ValidationError{
			Field:   "backend.cwd_timeout_ms",
			Value:   c.Backend.CwdTimeoutMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxCwdTimeout),
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.ScrollbackLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "tui.scrollback_lines",
			Value:   c.TUI.ScrollbackLines,
			Message: "must be non-negative",
		})
	}

	// Reasonable upper bound to prevent memory issues
	const maxScrollback = 100000
	if c.TUI.ScrollbackLines > maxScrollback {
		errors = append(errors, ValidationError{
			Field:   "tui.scrollback_lines",
			Value:   c.TUI.ScrollbackLines,
			Message: fmt.Sprintf("exceeds maximum of %d", maxScrollback),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
