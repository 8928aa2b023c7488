package toolcore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Limits on tool name/input size, applied before schema validation so a
// pathological request never reaches the (potentially expensive) schema
// compiler cache.
const (
	MaxToolNameLength = 256
	MaxToolInputSize  = 10 << 20
)

// Registry holds every tool a thread may call by name, and validates
// inputs against each tool's JSON Schema before an executor is ever
// constructed — malformed input never reaches Tool.New.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register compiles tool's schema and adds it under tool.Name(), replacing
// any existing tool with that name. A schema that fails to compile is a
// programmer error in the tool definition, not a runtime condition — it
// panics.
func (r *Registry) Register(tool Tool) {
	compiled, err := compileSchema(tool.Name(), tool.Schema())
	if err != nil {
		panic(fmt.Sprintf("toolcore: tool %q has invalid schema: %v", tool.Name(), err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.schemas[tool.Name()] = compiled
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, for building the provider's
// tool-use declarations.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// New validates request against the tool's registered name, size limits
// and schema, then constructs its executor. A validation failure never
// constructs an executor — it returns ErrUserInput directly so the
// dispatcher can append a done(error) result without a tool ever
// running.
func (r *Registry) New(request ToolRequest, tc ToolContext, dispatch DispatchFunc) (Executor, error) {
	if len(request.Name) > MaxToolNameLength {
		return nil, fmt.Errorf("%w: tool name exceeds %d characters", ErrUserInput, MaxToolNameLength)
	}
	if len(request.Input) > MaxToolInputSize {
		return nil, fmt.Errorf("%w: tool input exceeds %d bytes", ErrUserInput, MaxToolInputSize)
	}

	r.mu.RLock()
	tool, ok := r.tools[request.Name]
	schema := r.schemas[request.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown tool %q", ErrUserInput, request.Name)
	}

	if schema != nil {
		var v any
		if len(request.Input) == 0 {
			v = map[string]any{}
		} else if err := json.Unmarshal(request.Input, &v); err != nil {
			return nil, fmt.Errorf("%w: tool input is not valid JSON: %v", ErrUserInput, err)
		}
		if err := schema.Validate(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUserInput, err)
		}
	}

	return tool.New(request, tc, dispatch), nil
}

// compileSchema compiles raw into a *jsonschema.Schema. An empty schema
// (no input constraints declared) is valid and skips validation.
func compileSchema(toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	c := jsonschema.NewCompiler()
	url := "mem://" + toolName + ".json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(url)
}
