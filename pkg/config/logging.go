package config

import (
	"strconv"

	"github.com/JECH20102004/dayugame/logger"
)

// LoggingConfigSpec defines the logging configuration parameters.
type LoggingConfigSpec struct {
	// DefaultLevel is the default log level for all modules.
	// Supported values: trace, debug, info, warn, error.
	DefaultLevel string `yaml:"defaultLevel,omitempty" json:"defaultLevel,omitempty"`

	// Format specifies the output format, "json" or "text".
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// CommonFields are key-value pairs added to every log entry.
	CommonFields map[string]string `yaml:"commonFields,omitempty" json:"commonFields,omitempty"`

	// Modules configures logging for specific modules.
	// Module names use dot notation (e.g., providers.gemini).
	Modules []ModuleLoggingConfig `yaml:"modules,omitempty" json:"modules,omitempty"`
}

// ModuleLoggingConfig configures logging for a specific module.
type ModuleLoggingConfig struct {
	// Name is the module name pattern using dot notation.
	// More specific names take precedence over less specific ones.
	Name string `yaml:"name" json:"name"`

	// Level is the log level for this module.
	Level string `yaml:"level" json:"level"`
}

// LogLevel constants for programmatic use.
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogFormat constants for programmatic use.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// DefaultLoggingConfig returns a LoggingConfigSpec with sensible defaults.
func DefaultLoggingConfig() LoggingConfigSpec {
	return LoggingConfigSpec{
		DefaultLevel: LogLevelInfo,
		Format:       LogFormatText,
	}
}

// Validate validates the LoggingConfigSpec.
func (c *LoggingConfigSpec) Validate() error {
	if c.DefaultLevel != "" && !isValidLogLevel(c.DefaultLevel) {
		return &ValidationError{
			Field:   "logging.defaultLevel",
			Message: "must be one of: trace, debug, info, warn, error",
			Value:   c.DefaultLevel,
		}
	}

	if c.Format != "" && c.Format != LogFormatJSON && c.Format != LogFormatText {
		return &ValidationError{
			Field:   "logging.format",
			Message: "must be one of: json, text",
			Value:   c.Format,
		}
	}

	for i, mod := range c.Modules {
		if mod.Name == "" {
			return &ValidationError{
				Field:   "logging.modules[" + strconv.Itoa(i) + "].name",
				Message: "module name is required",
			}
		}
		if mod.Level != "" && !isValidLogLevel(mod.Level) {
			return &ValidationError{
				Field:   "logging.modules[" + mod.Name + "].level",
				Message: "must be one of: trace, debug, info, warn, error",
				Value:   mod.Level,
			}
		}
	}

	return nil
}

// Apply reconfigures the global logger from c.
func (c *LoggingConfigSpec) Apply() error {
	spec := &logger.LoggingConfigSpec{
		DefaultLevel: c.DefaultLevel,
		Format:       c.Format,
		CommonFields: c.CommonFields,
	}
	for _, mod := range c.Modules {
		spec.Modules = append(spec.Modules, logger.ModuleLoggingSpec{Name: mod.Name, Level: mod.Level})
	}
	return logger.Configure(spec)
}

func isValidLogLevel(level string) bool {
	switch level {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return "config validation error: " + e.Field + ": " + e.Message + " (got: " + e.Value + ")"
	}
	return "config validation error: " + e.Field + ": " + e.Message
}
