package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Tool pairs a descriptor with the handler that runs it.
type Tool struct {
	Descriptor *ToolDescriptor
	Handler    Handler
}

// Registry manages tool descriptors and their handlers. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Tool
	validator *SchemaValidator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]*Tool),
		validator: NewSchemaValidator(),
	}
}

// Register adds a tool. Registering an existing name replaces it.
func (r *Registry) Register(descriptor *ToolDescriptor, handler Handler) error {
	if descriptor == nil || descriptor.Name == "" {
		return ErrToolNameRequired
	}
	if descriptor.Description == "" {
		return fmt.Errorf("%s: %w", descriptor.Name, ErrToolDescriptionRequired)
	}
	if handler == nil {
		return fmt.Errorf("%s: %w", descriptor.Name, ErrHandlerRequired)
	}
	if err := r.validator.Compile(descriptor); err != nil {
		return err
	}

	r.mu.Lock()
	r.tools[descriptor.Name] = &Tool{Descriptor: descriptor, Handler: handler}
	r.mu.Unlock()
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return tool, nil
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Declarations returns every descriptor, sorted by name, for the session
// setup message.
func (r *Registry) Declarations() []ToolDescriptor {
	names := r.List()
	out := make([]ToolDescriptor, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			out = append(out, *tool.Descriptor)
		}
	}
	return out
}

// Validator returns the registry's argument validator.
func (r *Registry) Validator() *SchemaValidator {
	return r.validator
}
