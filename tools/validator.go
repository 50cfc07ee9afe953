package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator validates tool arguments against their input schemas.
// Compiled schemas are cached by source text.
type SchemaValidator struct {
	mu    sync.RWMutex
	cache map[string]*gojsonschema.Schema
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		cache: make(map[string]*gojsonschema.Schema),
	}
}

// ValidateArgs validates tool arguments against the input schema. A tool
// without a schema accepts any arguments.
func (sv *SchemaValidator) ValidateArgs(descriptor *ToolDescriptor, args json.RawMessage) error {
	if len(descriptor.InputSchema) == 0 {
		return nil
	}
	schema, err := sv.getSchema(string(descriptor.InputSchema))
	if err != nil {
		return &ValidationError{
			Type:   "schema_invalid",
			Tool:   descriptor.Name,
			Detail: fmt.Sprintf("invalid input schema: %v", err),
		}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("validation error for tool %s: %w", descriptor.Name, err)
	}

	if !result.Valid() {
		errors := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errors[i] = desc.String()
		}
		return &ValidationError{
			Type:   "args_invalid",
			Tool:   descriptor.Name,
			Detail: fmt.Sprintf("argument validation failed: %v", errors),
		}
	}

	return nil
}

// Compile checks that the descriptor's schema compiles.
func (sv *SchemaValidator) Compile(descriptor *ToolDescriptor) error {
	if len(descriptor.InputSchema) == 0 {
		return nil
	}
	if _, err := sv.getSchema(string(descriptor.InputSchema)); err != nil {
		return &ValidationError{
			Type:   "schema_invalid",
			Tool:   descriptor.Name,
			Detail: fmt.Sprintf("invalid input schema: %v", err),
		}
	}
	return nil
}

// getSchema retrieves or compiles a JSON schema
func (sv *SchemaValidator) getSchema(schemaJSON string) (*gojsonschema.Schema, error) {
	sv.mu.RLock()
	schema, exists := sv.cache[schemaJSON]
	sv.mu.RUnlock()
	if exists {
		return schema, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, err
	}

	sv.mu.Lock()
	sv.cache[schemaJSON] = schema
	sv.mu.Unlock()
	return schema, nil
}
