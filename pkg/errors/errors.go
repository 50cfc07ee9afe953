// Package errors provides the structured error type used across the live
// session runtime and the sentinel kinds of its failure taxonomy.
//
// ContextualError records which component failed and what it was doing.
// The taxonomy sentinels classify the failure so callers can decide its
// blast radius with errors.Is:
//
//	err := errors.Transport("dial", cause)
//	if errors.Is(err, errors.ErrTransport) { /* end the session */ }
package errors

import (
	stderrors "errors"
	"fmt"
)

// Failure kinds. Each one implies a different reaction from the session controller.
var (
	// ErrDeviceAcquisition covers camera, microphone and display failures.
	// Fatal to session start.
	ErrDeviceAcquisition = stderrors.New("device acquisition failed")

	// ErrTransport covers refused or dropped connections. Fatal to the
	// current session; never retried automatically.
	ErrTransport = stderrors.New("transport failure")

	// ErrPlaybackDecode covers a single undecodable audio fragment. The
	// fragment is dropped and playback continues.
	ErrPlaybackDecode = stderrors.New("playback decode failed")

	// ErrToolHandler covers a failing local tool handler. The call is still
	// answered, flagged as failed.
	ErrToolHandler = stderrors.New("tool handler failed")
)

// Component names used in ContextualError.
const (
	ComponentDevice    = "device"
	ComponentTransport = "transport"
	ComponentPlayback  = "playback"
	ComponentTools     = "tools"
	ComponentSession   = "session"
	ComponentConfig    = "config"
)

// ContextualError is a structured error with the component and operation
// that produced it.
type ContextualError struct {
	// Component identifies the module that produced the error.
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is an optional application or websocket close code.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Kind is the taxonomy sentinel, if any.
	Kind error

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Kind != nil {
		base += ": " + e.Kind.Error()
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ContextualError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// WithStatusCode sets the status code and returns e.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns e.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// WithKind sets the taxonomy kind and returns e.
func (e *ContextualError) WithKind(kind error) *ContextualError {
	e.Kind = kind
	return e
}

// Device wraps a device acquisition failure.
func Device(operation string, cause error) *ContextualError {
	return New(ComponentDevice, operation, cause).WithKind(ErrDeviceAcquisition)
}

// Transport wraps a transport failure.
func Transport(operation string, cause error) *ContextualError {
	return New(ComponentTransport, operation, cause).WithKind(ErrTransport)
}

// Decode wraps a playback decode failure.
func Decode(operation string, cause error) *ContextualError {
	return New(ComponentPlayback, operation, cause).WithKind(ErrPlaybackDecode)
}

// ToolHandler wraps a tool handler failure.
func ToolHandler(operation string, cause error) *ContextualError {
	return New(ComponentTools, operation, cause).WithKind(ErrToolHandler)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsSessionFatal reports whether err ends the current session.
func IsSessionFatal(err error) bool {
	return Is(err, ErrTransport) || Is(err, ErrDeviceAcquisition)
}
