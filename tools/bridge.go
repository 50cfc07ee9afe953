package tools

import (
	"context"
	"fmt"

	"github.com/JECH20102004/dayugame/logger"
	pkgerrors "github.com/JECH20102004/dayugame/pkg/errors"
	"github.com/JECH20102004/dayugame/types"
)

// Bridge answers remote function calls from a Registry. Every request gets
// exactly one result; failures are reported in the result, never returned.
type Bridge struct {
	registry *Registry
}

// NewBridge creates a bridge over registry.
func NewBridge(registry *Registry) *Bridge {
	return &Bridge{registry: registry}
}

// Registry returns the bridge's registry.
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// Dispatch runs req and returns its result. Unknown tools, invalid
// arguments and handler failures yield an IsError result carrying the
// message.
func (b *Bridge) Dispatch(ctx context.Context, req types.ToolCallRequest) types.ToolCallResult {
	ctx = logger.WithCallID(ctx, req.ID)
	logger.ToolDispatch(ctx, req.Name, req.ID)

	tool, err := b.registry.Get(req.Name)
	if err != nil {
		err = fmt.Errorf("unknown tool: %s", req.Name)
		logger.ToolFailed(ctx, req.Name, req.ID, err)
		return errorResult(req, err)
	}

	if err := b.registry.Validator().ValidateArgs(tool.Descriptor, req.ArgsJSON()); err != nil {
		logger.ToolFailed(ctx, req.Name, req.ID, err)
		return errorResult(req, err)
	}

	result, err := execute(ctx, tool.Handler, req.Args)
	if err != nil {
		logger.ToolFailed(ctx, req.Name, req.ID, pkgerrors.ToolHandler("Execute", err))
		return errorResult(req, err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return types.ToolCallResult{ID: req.ID, Name: req.Name, Result: result}
}

// execute runs handler, converting a panic into an error.
func execute(ctx context.Context, handler Handler, args map[string]any) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return handler.Execute(ctx, args)
}

func errorResult(req types.ToolCallRequest, err error) types.ToolCallResult {
	return types.ToolCallResult{
		ID:      req.ID,
		Name:    req.Name,
		Result:  map[string]any{"error": err.Error()},
		IsError: true,
	}
}
