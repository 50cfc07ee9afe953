// Package tools maps remote function calls to local handlers.
//
// The package provides:
//   - a Registry of tool descriptors and their handlers
//   - JSON Schema validation of call arguments (gojsonschema)
//   - a Bridge that answers every call with exactly one result
//   - the built-in UI tools that forward commands to the desktop shell
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for tool operations.
var (
	// ErrToolNotFound is returned when a requested tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolNameRequired is returned when registering a tool without a name.
	ErrToolNameRequired = errors.New("tool name is required")

	// ErrToolDescriptionRequired is returned when registering a tool without a description.
	ErrToolDescriptionRequired = errors.New("tool description is required")

	// ErrHandlerRequired is returned when registering a tool without a handler.
	ErrHandlerRequired = errors.New("tool handler is required")
)

// ToolDescriptor describes a callable tool to the remote model.
type ToolDescriptor struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty" yaml:"input_schema,omitempty"` // JSON Schema Draft-07
}

// Handler runs one tool call. A returned error is reported to the remote
// model as a failed call; it never ends the session.
type Handler interface {
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	return f(ctx, args)
}

// CommandHandler is the desktop shell that receives UI commands.
type CommandHandler interface {
	HandleCommand(name string, args map[string]any)
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc func(name string, args map[string]any)

// HandleCommand calls f.
func (f CommandHandlerFunc) HandleCommand(name string, args map[string]any) {
	f(name, args)
}

// ValidationError represents a tool validation failure
type ValidationError struct {
	Type   string `json:"type"` // "args_invalid" | "schema_invalid"
	Tool   string `json:"tool"`
	Detail string `json:"detail"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %s validation error (%s): %s", e.Tool, e.Type, e.Detail)
}
