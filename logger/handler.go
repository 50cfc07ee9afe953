package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// moduleRoot is stripped from function names to derive module names.
const moduleRoot = "github.com/JECH20102004/dayugame/"

// ContextHandler enriches each record with common fields and the logging
// fields stored in the context, then delegates to inner.
type ContextHandler struct {
	inner        slog.Handler
	commonFields []slog.Attr
}

// NewContextHandler wraps inner.
func NewContextHandler(inner slog.Handler, commonFields ...slog.Attr) *ContextHandler {
	return &ContextHandler{inner: inner, commonFields: commonFields}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds common and context fields ahead of the record's own attributes.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, h.enrich(ctx, r, ""))
}

//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) enrich(ctx context.Context, r slog.Record, module string) slog.Record {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(h.commonFields...)
	if module != "" {
		out.AddAttrs(slog.String("logger", module))
	}
	if ctx != nil {
		for _, key := range allContextKeys {
			if s, ok := ctx.Value(key).(string); ok && s != "" {
				out.AddAttrs(slog.String(string(key), s))
			}
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(RedactSensitiveData(a.Value.String()))
		}
		out.AddAttrs(a)
		return true
	})
	return out
}

// WithAttrs returns a handler whose inner handler carries attrs.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), commonFields: h.commonFields}
}

// WithGroup returns a handler whose inner handler opens group name.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name), commonFields: h.commonFields}
}

// Unwrap returns the inner handler.
func (h *ContextHandler) Unwrap() slog.Handler {
	return h.inner
}

var _ slog.Handler = (*ContextHandler)(nil)

// ModuleHandler applies per-module levels on top of ContextHandler. The
// module is derived from the calling function's package path.
type ModuleHandler struct {
	ContextHandler
	moduleConfig *ModuleConfig
}

// NewModuleHandler wraps inner with module filtering.
func NewModuleHandler(inner slog.Handler, moduleConfig *ModuleConfig, commonFields ...slog.Attr) *ModuleHandler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{inner: inner, commonFields: commonFields},
		moduleConfig:   moduleConfig,
	}
}

// Enabled checks the level configured for the calling module.
func (h *ModuleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.moduleConfig.LevelFor(callerModule())
}

// Handle drops records below the module level and tags the rest with the module name.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ModuleHandler) Handle(ctx context.Context, r slog.Record) error {
	module := moduleFromPC(r.PC)
	if r.Level < h.moduleConfig.LevelFor(module) {
		return nil
	}
	return h.inner.Handle(ctx, h.enrich(ctx, r, module))
}

// WithAttrs returns a ModuleHandler whose inner handler carries attrs.
func (h *ModuleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{inner: h.inner.WithAttrs(attrs), commonFields: h.commonFields},
		moduleConfig:   h.moduleConfig,
	}
}

// WithGroup returns a ModuleHandler whose inner handler opens group name.
func (h *ModuleHandler) WithGroup(name string) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{inner: h.inner.WithGroup(name), commonFields: h.commonFields},
		moduleConfig:   h.moduleConfig,
	}
}

var _ slog.Handler = (*ModuleHandler)(nil)

// callerModule returns the first module on the stack outside this package.
func callerModule() string {
	const maxDepth = 12
	var pcs [maxDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if module := moduleFromFunction(frame.Function); module != "" && module != "logger" {
			return module
		}
		if !more {
			return ""
		}
	}
}

func moduleFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return moduleFromFunction(frame.Function)
}

// moduleFromFunction maps a qualified function name such as
// ".../dayugame/providers/gemini.(*LiveStream).Send" to "providers.gemini".
func moduleFromFunction(fn string) string {
	idx := strings.Index(fn, moduleRoot)
	if idx == -1 {
		return ""
	}
	path := fn[idx+len(moduleRoot):]
	if parenIdx := strings.Index(path, "("); parenIdx != -1 {
		path = path[:parenIdx]
	}
	slash := strings.LastIndex(path, "/")
	if dotIdx := strings.Index(path[slash+1:], "."); dotIdx != -1 {
		path = path[:slash+1+dotIdx]
	}
	return strings.ReplaceAll(path, "/", ".")
}
