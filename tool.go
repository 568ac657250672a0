package reagent

import (
	"context"
	"fmt"
	"strings"
)

// ToolSpec is the specification of a tool shown to the LLM.
type ToolSpec struct {
	// Name is the unique identifier for the tool. The LLM refers to the tool by this name in the "Action:" line.
	Name string

	// Description is a human-readable description of what the tool does and what input it expects.
	Description string
}

// String renders the spec as one line of the tool list in the prompt.
func (s ToolSpec) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Description)
}

// Tool is a named capability that can be called by the LLM.
// Input and output are plain text: the agent passes the parsed "Action Input:" as is and
// feeds the returned string back to the LLM as the observation.
type Tool interface {
	// Spec returns the specification of the tool. It must not change after registration.
	Spec() ToolSpec

	// Run is the execution of the tool. A returned error aborts the run unless a ToolErrorHook handles it.
	Run(ctx context.Context, input string) (string, error)
}

// ToolSet is a set of tools provided by a single backend, such as an MCP server.
type ToolSet interface {
	// Tools returns the tools of the set in a stable order.
	Tools(ctx context.Context) ([]Tool, error)
}

// ToolFunc is the function signature wrapped by NewTool.
type ToolFunc func(ctx context.Context, input string) (string, error)

type funcTool struct {
	spec ToolSpec
	fn   ToolFunc
}

// NewTool creates a Tool from a plain function.
// Usage:
//
//	tool := reagent.NewTool("echo", "Returns the input as is", func(ctx context.Context, input string) (string, error) {
//		return input, nil
//	})
func NewTool(name, description string, fn ToolFunc) Tool {
	return &funcTool{
		spec: ToolSpec{Name: name, Description: description},
		fn:   fn,
	}
}

func (t *funcTool) Spec() ToolSpec {
	return t.spec
}

func (t *funcTool) Run(ctx context.Context, input string) (string, error) {
	return t.fn(ctx, input)
}

// renderToolDescriptions renders one "name: description" line per tool.
func renderToolDescriptions(specs []ToolSpec) string {
	lines := make([]string, len(specs))
	for i, spec := range specs {
		lines[i] = spec.String()
	}
	return strings.Join(lines, "\n")
}

// renderToolNames joins tool names with ", " for the "should be one of [...]" part of the prompt.
func renderToolNames(specs []ToolSpec) string {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return strings.Join(names, ", ")
}
