package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

type MCPClient = mcpClient

// NewWithClient creates a client on top of a connected MCP client for testing
func NewWithClient(cl mcpClient) *Client {
	return &Client{
		name:       DefaultClientName,
		version:    DefaultClientVersion,
		client:     cl,
		initResult: &mcp.InitializeResult{},
	}
}

func (x *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return x.callTool(ctx, name, args)
}

var (
	InputToArguments = inputToArguments
	ContentToText    = contentToText
	Describe         = describe
)
