// Package mcp exposes the tools of an MCP server as reagent tools. Each MCP tool becomes a
// text-in/text-out tool: the action input is turned into the tool arguments and the text
// content of the result becomes the observation.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// DefaultClientName is the default name for MCP client
	DefaultClientName = "reagent"
	// DefaultClientVersion is the default version for MCP client
	DefaultClientVersion = "0.1.0"
)

// mcpClient is the part of the mark3labs client used here (unexported for encapsulation)
type mcpClient interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Client is a connection to one MCP server. It implements reagent.ToolSet.
type Client struct {
	// For local MCP server
	path    string
	args    []string
	envVars []string

	// For remote MCP server
	baseURL string
	headers map[string]string

	name    string
	version string

	client     mcpClient
	initResult *mcp.InitializeResult

	initMutex sync.Mutex
}

// StdioOption is the option for the MCP client for local MCP executable server via stdio.
type StdioOption func(*Client)

// WithEnvVars sets the environment variables for the MCP server process. It appends the
// environment variables to the existing ones. Each entry is "KEY=VALUE".
func WithEnvVars(envVars []string) StdioOption {
	return func(m *Client) {
		m.envVars = append(m.envVars, envVars...)
	}
}

// WithStdioClientInfo sets the client name and version for the MCP client.
func WithStdioClientInfo(name, version string) StdioOption {
	return func(m *Client) {
		m.name = name
		m.version = version
	}
}

// NewStdio starts a local MCP server and connects to it via stdio.
func NewStdio(ctx context.Context, path string, args []string, options ...StdioOption) (*Client, error) {
	c := &Client{
		path:    path,
		args:    args,
		name:    DefaultClientName,
		version: DefaultClientVersion,
	}
	for _, option := range options {
		option(c)
	}

	if err := c.start(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to start MCP client", goerr.V("path", path))
	}
	return c, nil
}

// SSEOption is the option for the MCP client for remote MCP server via HTTP SSE.
type SSEOption func(*Client)

// WithHeaders sets the headers for the MCP client. It replaces the existing headers setting.
func WithHeaders(headers map[string]string) SSEOption {
	return func(m *Client) {
		m.headers = headers
	}
}

// WithSSEClientInfo sets the client name and version for the MCP client.
func WithSSEClientInfo(name, version string) SSEOption {
	return func(m *Client) {
		m.name = name
		m.version = version
	}
}

// NewSSE connects to a remote MCP server via HTTP SSE.
func NewSSE(ctx context.Context, baseURL string, options ...SSEOption) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		headers: map[string]string{},
		name:    DefaultClientName,
		version: DefaultClientVersion,
	}
	for _, option := range options {
		option(c)
	}

	if err := c.start(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to start MCP client", goerr.V("url", baseURL))
	}
	return c, nil
}

func (c *Client) start(ctx context.Context) error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.initResult != nil {
		return nil
	}

	var tp transport.Interface
	if c.path != "" {
		tp = transport.NewStdio(c.path, c.envVars, c.args...)
	}

	if c.baseURL != "" {
		sse, err := transport.NewSSE(c.baseURL, transport.WithHeaders(c.headers))
		if err != nil {
			return goerr.Wrap(err, "failed to create SSE transport")
		}
		tp = sse
	}

	if tp == nil {
		return goerr.New("no transport")
	}

	cl := client.NewClient(tp)
	if err := cl.Start(ctx); err != nil {
		return goerr.Wrap(err, "failed to start MCP transport")
	}

	var initRequest mcp.InitializeRequest
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    c.name,
		Version: c.version,
	}

	resp, err := cl.Initialize(ctx, initRequest)
	if err != nil {
		_ = cl.Close()
		return goerr.Wrap(err, "failed to initialize MCP client")
	}

	c.client = cl
	c.initResult = resp

	reagent.LoggerFromContext(ctx).Debug("MCP client initialized",
		"server", resp.ServerInfo.Name,
		"server_version", resp.ServerInfo.Version,
	)
	return nil
}

// ServerName returns the name the server reported on initialization.
func (c *Client) ServerName() string {
	if c.initResult == nil {
		return ""
	}
	return c.initResult.ServerInfo.Name
}

// Tools implements reagent.ToolSet. Tools are returned in the order the server lists them.
func (c *Client) Tools(ctx context.Context) ([]reagent.Tool, error) {
	if c.client == nil {
		return nil, goerr.New("MCP client not initialized")
	}

	resp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tools")
	}

	tools := make([]reagent.Tool, len(resp.Tools))
	names := make([]string, len(resp.Tools))
	for i, t := range resp.Tools {
		tools[i] = &tool{client: c, def: t}
		names[i] = t.Name
	}
	reagent.LoggerFromContext(ctx).Debug("found MCP tools", "names", names)

	return tools, nil
}

// Close stops the connection and, for stdio, the server process.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close MCP client")
	}
	return nil
}

func (c *Client) callTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool", goerr.V("name", name))
	}
	return resp, nil
}

// tool adapts one MCP tool to reagent.Tool.
type tool struct {
	client *Client
	def    mcp.Tool
}

func (t *tool) Spec() reagent.ToolSpec {
	return reagent.ToolSpec{
		Name:        t.def.Name,
		Description: describe(t.def),
	}
}

func (t *tool) Run(ctx context.Context, input string) (string, error) {
	logger := reagent.LoggerFromContext(ctx)

	args, err := inputToArguments(t.def.InputSchema, input)
	if err != nil {
		return "", goerr.Wrap(err, "invalid input for MCP tool", goerr.V("tool", t.def.Name))
	}

	logger.Debug("call MCP tool", "name", t.def.Name, "args", args)
	resp, err := t.client.callTool(ctx, t.def.Name, args)
	if err != nil {
		return "", err
	}

	text := contentToText(resp.Content)
	if resp.IsError {
		return "", goerr.New("MCP tool returned an error", goerr.V("tool", t.def.Name), goerr.V("message", text))
	}
	return text, nil
}

// describe renders the tool description with a hint about the expected input.
func describe(def mcp.Tool) string {
	desc := strings.TrimSpace(def.Description)

	if _, ok := singleStringProperty(def.InputSchema); ok {
		return desc
	}

	keys := propertyNames(def.InputSchema)
	if len(keys) == 0 {
		return desc
	}

	hint := fmt.Sprintf("Input must be a JSON object with keys: %s", strings.Join(keys, ", "))
	if len(def.InputSchema.Required) > 0 {
		hint += fmt.Sprintf(" (required: %s)", strings.Join(def.InputSchema.Required, ", "))
	}
	if desc == "" {
		return hint
	}
	return desc + ". " + hint
}

func propertyNames(schema mcp.ToolInputSchema) []string {
	keys := make([]string, 0, len(schema.Properties))
	for k := range schema.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// singleStringProperty returns the property that a plain text input maps to: the only
// property, or the only required property, when it is a string.
func singleStringProperty(schema mcp.ToolInputSchema) (string, bool) {
	var name string
	switch {
	case len(schema.Properties) == 1:
		for k := range schema.Properties {
			name = k
		}
	case len(schema.Required) == 1:
		name = schema.Required[0]
	default:
		return "", false
	}

	prop, ok := schema.Properties[name].(map[string]any)
	if !ok {
		return "", false
	}
	if typ, _ := prop["type"].(string); typ != "string" {
		return "", false
	}
	return name, true
}

// inputToArguments converts the action input into MCP tool arguments. For a tool taking a
// single string, the input is that string unless it is a JSON object carrying the property.
// Other tools need a JSON object, which is repaired if malformed.
func inputToArguments(schema mcp.ToolInputSchema, input string) (map[string]any, error) {
	trimmed := strings.TrimSpace(input)

	if trimmed == "" && len(schema.Required) == 0 {
		return map[string]any{}, nil
	}

	name, textual := singleStringProperty(schema)
	if !textual {
		if !strings.HasPrefix(trimmed, "{") {
			return nil, goerr.New("input must be a JSON object",
				goerr.V("input", input),
				goerr.V("properties", propertyNames(schema)),
			)
		}
		return parseObject(trimmed)
	}

	if strings.HasPrefix(trimmed, "{") {
		var args map[string]any
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			if _, ok := args[name]; ok {
				return args, nil
			}
		}
	}
	return map[string]any{name: input}, nil
}

func parseObject(text string) (map[string]any, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(text), &args); err == nil {
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to repair JSON input", goerr.V("input", text))
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, goerr.Wrap(err, "failed to parse repaired JSON input",
			goerr.V("input", text),
			goerr.V("repaired", repaired),
		)
	}
	return args, nil
}

// contentToText concatenates the text contents of a tool result.
func contentToText(contents []mcp.Content) string {
	var parts []string
	for _, c := range contents {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			parts = append(parts, fmt.Sprintf("[non-text content: %T]", c))
		}
	}
	return strings.Join(parts, "\n")
}
