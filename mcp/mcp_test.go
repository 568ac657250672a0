package mcp_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent"
	"github.com/m-mizutani/reagent/mcp"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

type fakeMCPClient struct {
	tools   []mcpgo.Tool
	results map[string]*mcpgo.CallToolResult
	calls   []mcpgo.CallToolRequest
	closed  bool
}

func (x *fakeMCPClient) ListTools(ctx context.Context, request mcpgo.ListToolsRequest) (*mcpgo.ListToolsResult, error) {
	return &mcpgo.ListToolsResult{Tools: x.tools}, nil
}

func (x *fakeMCPClient) CallTool(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	x.calls = append(x.calls, request)
	result, ok := x.results[request.Params.Name]
	if !ok {
		return nil, errors.New("unknown tool")
	}
	return result, nil
}

func (x *fakeMCPClient) Close() error {
	x.closed = true
	return nil
}

var (
	searchSchema = mcpgo.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
		},
		Required: []string{"query"},
	}
	rangeSchema = mcpgo.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"min": map[string]any{"type": "number"},
			"max": map[string]any{"type": "number"},
		},
		Required: []string{"min", "max"},
	}
)

func newFake() *fakeMCPClient {
	return &fakeMCPClient{
		tools: []mcpgo.Tool{
			{Name: "search", Description: "Searches documents", InputSchema: searchSchema},
			{Name: "random", Description: "Random number in range", InputSchema: rangeSchema},
		},
		results: map[string]*mcpgo.CallToolResult{
			"search": {Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: "found 2 documents"}}},
			"random": {Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: "7"}}},
			"broken": {Content: []mcpgo.Content{mcpgo.TextContent{Type: "text", Text: "backend down"}}, IsError: true},
		},
	}
}

func TestTools(t *testing.T) {
	fake := newFake()
	client := mcp.NewWithClient(fake)

	tools, err := client.Tools(t.Context())
	gt.NoError(t, err).Required()
	gt.A(t, tools).Length(2).Required()
	gt.Equal(t, tools[0].Spec().Name, "search")
	gt.Equal(t, tools[0].Spec().Description, "Searches documents")
	gt.Equal(t, tools[1].Spec().Name, "random")
	gt.S(t, tools[1].Spec().Description).Contains("JSON object with keys: max, min")

	t.Run("plain text input goes to the single string property", func(t *testing.T) {
		out, err := tools[0].Run(t.Context(), "reagent docs")
		gt.NoError(t, err)
		gt.Equal(t, out, "found 2 documents")

		last := fake.calls[len(fake.calls)-1]
		gt.Equal(t, last.Params.Name, "search")
		gt.Equal(t, last.Params.Arguments["query"], any("reagent docs"))
	})

	t.Run("JSON input", func(t *testing.T) {
		out, err := tools[1].Run(t.Context(), `{"min": 1, "max": 10}`)
		gt.NoError(t, err)
		gt.Equal(t, out, "7")

		last := fake.calls[len(fake.calls)-1]
		gt.Equal(t, last.Params.Arguments["min"], any(float64(1)))
		gt.Equal(t, last.Params.Arguments["max"], any(float64(10)))
	})

	t.Run("plain text for object tool", func(t *testing.T) {
		n := len(fake.calls)
		_, err := tools[1].Run(t.Context(), "between one and ten")
		gt.Error(t, err)
		gt.A(t, fake.calls).Length(n)
	})

	gt.NoError(t, client.Close())
	gt.True(t, fake.closed)
}

func TestRegisterToolSet(t *testing.T) {
	client := mcp.NewWithClient(newFake())

	registry, err := reagent.NewRegistry()
	gt.NoError(t, err).Required()
	gt.NoError(t, registry.RegisterToolSet(t.Context(), client))
	gt.Equal(t, registry.Names(), []string{"search", "random"})
}

func TestToolError(t *testing.T) {
	fake := newFake()
	fake.tools = []mcpgo.Tool{{Name: "broken", InputSchema: mcpgo.ToolInputSchema{Type: "object"}}}
	client := mcp.NewWithClient(fake)

	tools, err := client.Tools(t.Context())
	gt.NoError(t, err).Required()

	_, err = tools[0].Run(t.Context(), "")
	gt.Error(t, err)
}

func TestInputToArguments(t *testing.T) {
	t.Run("repairs malformed JSON", func(t *testing.T) {
		args, err := mcp.InputToArguments(rangeSchema, `{min: 1, "max": 10,}`)
		gt.NoError(t, err).Required()
		gt.Equal(t, args["min"], any(float64(1)))
		gt.Equal(t, args["max"], any(float64(10)))
	})

	t.Run("empty input without required properties", func(t *testing.T) {
		args, err := mcp.InputToArguments(mcpgo.ToolInputSchema{Type: "object"}, "  ")
		gt.NoError(t, err)
		gt.Equal(t, len(args), 0)
	})

	t.Run("brace text falls back to string property", func(t *testing.T) {
		args, err := mcp.InputToArguments(searchSchema, "{not json at all")
		gt.NoError(t, err).Required()
		gt.Equal(t, args["query"], any("{not json at all"))
	})

	t.Run("JSON object with the string property", func(t *testing.T) {
		args, err := mcp.InputToArguments(searchSchema, `{"query": "go agents"}`)
		gt.NoError(t, err).Required()
		gt.Equal(t, args["query"], any("go agents"))
	})

	t.Run("JSON object without the string property is kept as text", func(t *testing.T) {
		args, err := mcp.InputToArguments(searchSchema, `{"q": "x"}`)
		gt.NoError(t, err).Required()
		gt.Equal(t, args["query"], any(`{"q": "x"}`))
	})

	t.Run("non string single property", func(t *testing.T) {
		schema := mcpgo.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"n": map[string]any{"type": "integer"}},
			Required:   []string{"n"},
		}
		_, err := mcp.InputToArguments(schema, "5")
		gt.Error(t, err)
	})
}

func TestContentToText(t *testing.T) {
	gt.Equal(t, mcp.ContentToText(nil), "")
	gt.Equal(t, mcp.ContentToText([]mcpgo.Content{
		mcpgo.TextContent{Type: "text", Text: "hello"},
		&mcpgo.TextContent{Type: "text", Text: "world"},
	}), "hello\nworld")
	gt.S(t, mcp.ContentToText([]mcpgo.Content{
		mcpgo.ImageContent{Type: "image", MIMEType: "image/png"},
	})).Contains("non-text content")
}

func TestMCPLocal(t *testing.T) {
	mcpExecPath, ok := os.LookupEnv("TEST_MCP_EXEC_PATH")
	if !ok {
		t.Skip("TEST_MCP_EXEC_PATH is not set")
	}

	client, err := mcp.NewStdio(t.Context(), mcpExecPath, nil)
	gt.NoError(t, err).Required()
	defer func() {
		gt.NoError(t, client.Close())
	}()

	tools, err := client.Tools(t.Context())
	gt.NoError(t, err)
	gt.A(t, tools).Longer(0)
}
