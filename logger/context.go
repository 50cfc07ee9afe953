package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys whose values are copied onto every log record.
const (
	// ContextKeySessionID identifies the live session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyAgentID identifies the configured agent profile.
	ContextKeyAgentID contextKey = "agent_id"

	// ContextKeyModel identifies the remote model.
	ContextKeyModel contextKey = "model"

	// ContextKeyComponent names the runtime component (transport, playback, ...).
	ContextKeyComponent contextKey = "component"

	// ContextKeyCallID identifies a tool call.
	ContextKeyCallID contextKey = "call_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyAgentID,
	ContextKeyModel,
	ContextKeyComponent,
	ContextKeyCallID,
	ContextKeyEnvironment,
}

// WithSessionID returns a context carrying the session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithAgentID returns a context carrying the agent id.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, ContextKeyAgentID, agentID)
}

// WithModel returns a context carrying the model name.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ContextKeyModel, model)
}

// WithComponent returns a context carrying the component name.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ContextKeyComponent, component)
}

// WithCallID returns a context carrying a tool call id.
func WithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, ContextKeyCallID, callID)
}

// WithEnvironment returns a context carrying the environment name.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// LoggingFields groups the context fields for WithLoggingContext.
type LoggingFields struct {
	SessionID   string
	AgentID     string
	Model       string
	Component   string
	Environment string
}

// WithLoggingContext sets every non-empty field at once.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.SessionID != "" {
		ctx = WithSessionID(ctx, fields.SessionID)
	}
	if fields.AgentID != "" {
		ctx = WithAgentID(ctx, fields.AgentID)
	}
	if fields.Model != "" {
		ctx = WithModel(ctx, fields.Model)
	}
	if fields.Component != "" {
		ctx = WithComponent(ctx, fields.Component)
	}
	if fields.Environment != "" {
		ctx = WithEnvironment(ctx, fields.Environment)
	}
	return ctx
}

// ExtractLoggingFields reads the logging fields back out of ctx.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	get := func(k contextKey) string {
		if v, ok := ctx.Value(k).(string); ok {
			return v
		}
		return ""
	}
	return LoggingFields{
		SessionID:   get(ContextKeySessionID),
		AgentID:     get(ContextKeyAgentID),
		Model:       get(ContextKeyModel),
		Component:   get(ContextKeyComponent),
		Environment: get(ContextKeyEnvironment),
	}
}
