// Package logger provides structured logging for the live session runtime.
//
// It wraps log/slog with:
//   - a process-wide DefaultLogger configured from LOG_LEVEL
//   - helpers for session lifecycle, tool dispatch, and transport failures
//   - redaction of API keys and bearer tokens before they reach a log sink
//   - context-carried fields (session, agent, model) added to every record
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	DefaultLogger *slog.Logger

	// logOutput is where handlers write. Tests swap it for a buffer.
	logOutput io.Writer = os.Stderr

	// customHandler is set by SetLogger and makes Configure a no-op.
	customHandler slog.Handler
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	DefaultLogger = slog.New(NewContextHandler(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})))
}

// ParseLevel converts a level name into a slog.Level. Unknown names map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel replaces the global logger with a text logger at the given level.
func SetLevel(level slog.Level) {
	DefaultLogger = slog.New(NewContextHandler(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetVerbose toggles between debug and info level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
		return
	}
	SetLevel(slog.LevelInfo)
}

// SetLogger installs a caller-provided logger. Subsequent Configure calls keep it.
// Passing nil restores the default text logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		customHandler = nil
		SetLevel(slog.LevelInfo)
		return
	}
	customHandler = l.Handler()
	DefaultLogger = l
}

// SetOutput redirects the default handlers to w. Intended for tests.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
}

// Info logs at info level.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs at info level with context fields.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs at debug level with context fields.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs at warn level with context fields.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs at error level with context fields.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// SessionState logs a lifecycle transition of the live session.
func SessionState(ctx context.Context, from, to string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "from", from, "to", to)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, "🎙️ Live session state", allAttrs...)
}

// ToolDispatch logs a remote function call as it is handed to a local handler.
// The call id travels on the context.
func ToolDispatch(ctx context.Context, name, callID string, attrs ...any) {
	allAttrs := make([]any, 0, 2+len(attrs))
	allAttrs = append(allAttrs, "tool", name)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(withCallID(ctx, callID), "🔧 Tool call", allAttrs...)
}

// ToolFailed logs a tool call that produced an error-flagged result.
func ToolFailed(ctx context.Context, name, callID string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "tool", name, "error", err)
	allAttrs = append(allAttrs, attrs...)
	WarnContext(withCallID(ctx, callID), "❌ Tool call failed", allAttrs...)
}

// withCallID attaches callID unless ctx already carries it.
func withCallID(ctx context.Context, callID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if callID == "" || ctx.Value(ContextKeyCallID) == callID {
		return ctx
	}
	return WithCallID(ctx, callID)
}

// TransportFailure logs a connection-level failure that ends the session.
func TransportFailure(ctx context.Context, op string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "op", op, "error", RedactSensitiveData(errString(err)))
	allAttrs = append(allAttrs, attrs...)
	ErrorContext(ctx, "🔴 Live transport failure", allAttrs...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

var (
	// apiKeyPatterns match credentials that may leak into URLs, headers, or errors.
	apiKeyPatterns = []*regexp.Regexp{
		// Google API keys
		regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),
		// Google OAuth access tokens
		regexp.MustCompile(`ya29\.[a-zA-Z0-9_.-]+`),
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_.-]+`),
		// key query parameter on the Live endpoint URL
		regexp.MustCompile(`[?&]key=[a-zA-Z0-9_-]{8,}`),
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),
	}
)

// RedactSensitiveData masks API keys and tokens, keeping the first four
// characters of a key for debugging.
func RedactSensitiveData(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			switch {
			case strings.HasPrefix(match, "Bearer "):
				return "Bearer [REDACTED]"
			case strings.HasPrefix(match, "?key=") || strings.HasPrefix(match, "&key="):
				return match[:5] + "[REDACTED]"
			case len(match) > 8:
				return match[:4] + "...[REDACTED]"
			default:
				return "[REDACTED]"
			}
		})
	}
	return result
}
