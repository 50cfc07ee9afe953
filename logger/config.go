package logger

import (
	"log/slog"
	"strings"
	"sync"
)

// ModuleConfig holds per-module log levels. Module names are dot separated
// package paths below the module root, e.g. "providers.gemini"; the most
// specific configured prefix wins.
type ModuleConfig struct {
	defaultLevel slog.Level
	modules      map[string]slog.Level
	mu           sync.RWMutex
}

// NewModuleConfig creates a ModuleConfig with the given default level.
func NewModuleConfig(defaultLevel slog.Level) *ModuleConfig {
	return &ModuleConfig{
		defaultLevel: defaultLevel,
		modules:      make(map[string]slog.Level),
	}
}

// SetModuleLevel sets the level for a module and its sub-modules.
func (m *ModuleConfig) SetModuleLevel(module string, level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[module] = level
}

// SetDefaultLevel sets the level used when no module entry matches.
func (m *ModuleConfig) SetDefaultLevel(level slog.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
}

// LevelFor walks from the exact module name up through its parents and
// returns the first configured level, or the default.
func (m *ModuleConfig) LevelFor(module string) slog.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for module != "" {
		if level, ok := m.modules[module]; ok {
			return level
		}
		lastDot := strings.LastIndex(module, ".")
		if lastDot == -1 {
			break
		}
		module = module[:lastDot]
	}
	return m.defaultLevel
}

func (m *ModuleConfig) empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.modules) == 0
}

var globalModuleConfig = NewModuleConfig(slog.LevelInfo)

// LoggingConfigSpec is the logger's view of the logging section of the
// runtime config. It mirrors config.LoggingConfigSpec to avoid an import cycle.
type LoggingConfigSpec struct {
	DefaultLevel string
	Format       string // "json" or "text"
	CommonFields map[string]string
	Modules      []ModuleLoggingSpec
}

// ModuleLoggingSpec configures one module.
type ModuleLoggingSpec struct {
	Name  string
	Level string
}

// Log format constants.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Configure rebuilds DefaultLogger from cfg. A logger installed with
// SetLogger is left untouched.
func Configure(cfg *LoggingConfigSpec) error {
	if cfg == nil || customHandler != nil {
		return nil
	}

	defaultLevel := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		defaultLevel = ParseLevel(cfg.DefaultLevel)
	}

	commonFields := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		commonFields = append(commonFields, slog.String(k, v))
	}

	moduleConfig := NewModuleConfig(defaultLevel)
	for _, mod := range cfg.Modules {
		moduleConfig.SetModuleLevel(mod.Name, ParseLevel(mod.Level))
	}
	globalModuleConfig = moduleConfig

	initLoggerWithConfig(defaultLevel, commonFields, moduleConfig, cfg.Format == FormatJSON)
	return nil
}

func initLoggerWithConfig(level slog.Level, commonFields []slog.Attr, moduleConfig *ModuleConfig, useJSON bool) {
	// Modules may be more verbose than the default, so the base handler
	// accepts everything and the module handler filters.
	baseLevel := level
	if moduleConfig != nil && !moduleConfig.empty() {
		baseLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: baseLevel}

	var baseHandler slog.Handler
	if useJSON {
		baseHandler = slog.NewJSONHandler(logOutput, opts)
	} else {
		baseHandler = slog.NewTextHandler(logOutput, opts)
	}

	var handler slog.Handler
	if moduleConfig != nil && !moduleConfig.empty() {
		handler = NewModuleHandler(baseHandler, moduleConfig, commonFields...)
	} else {
		handler = NewContextHandler(baseHandler, commonFields...)
	}

	DefaultLogger = slog.New(handler)
}

// GetModuleConfig returns the active module configuration.
func GetModuleConfig() *ModuleConfig {
	return globalModuleConfig
}
