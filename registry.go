package reagent

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Registry is an ordered collection of tools with unique names.
// Registration order is kept because it determines the tool list rendered into the prompt.
// Registry is not safe for concurrent registration; build it before starting a run.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry creates a registry and registers the given tools in order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		index: make(map[string]int, len(tools)),
	}

	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds a tool to the end of the registry.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return goerr.Wrap(ErrInvalidTool, "tool is nil")
	}

	spec := tool.Spec()
	if spec.Name == "" {
		return goerr.Wrap(ErrInvalidTool, "name is required", goerr.V("description", spec.Description))
	}
	if _, ok := r.index[spec.Name]; ok {
		return goerr.Wrap(ErrDuplicateTool, "tool is already registered", goerr.V("name", spec.Name))
	}

	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[spec.Name] = len(r.tools)
	r.tools = append(r.tools, tool)
	return nil
}

// RegisterToolSet registers all tools provided by the tool set.
func (r *Registry) RegisterToolSet(ctx context.Context, set ToolSet) error {
	tools, err := set.Tools(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list tools of tool set")
	}

	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the tool registered with the name.
func (r *Registry) Lookup(name string) (Tool, error) {
	idx, ok := r.index[name]
	if !ok {
		return nil, goerr.Wrap(ErrToolNotFound, "tool is not registered",
			goerr.V("name", name),
			goerr.V("available", r.Names()),
		)
	}
	return r.tools[idx], nil
}

// Specs returns the specs of all tools in registration order.
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, len(r.tools))
	for i, tool := range r.tools {
		specs[i] = tool.Spec()
	}
	return specs
}

// Names returns the names of all tools in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, tool := range r.tools {
		names[i] = tool.Spec().Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
