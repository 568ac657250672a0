package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
	"github.com/m-mizutani/reagent/mcp"
	"github.com/m-mizutani/reagent/tools/textlength"
	"github.com/m-mizutani/reagent/tools/webfetch"
	"github.com/urfave/cli/v3"
)

type toolConfig struct {
	mcpCommand     string
	mcpArgs        []string
	mcpEnv         []string
	mcpURL         string
	mcpHeaders     []string
	enableWebfetch bool
	fetchTimeout   time.Duration
}

func (c *toolConfig) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mcp-command",
			Sources:     cli.EnvVars("REAGENT_MCP_COMMAND"),
			Usage:       "Command of a local MCP server (stdio)",
			Destination: &c.mcpCommand,
		},
		&cli.StringSliceFlag{
			Name:        "mcp-arg",
			Sources:     cli.EnvVars("REAGENT_MCP_ARGS"),
			Usage:       "Argument of the MCP server command (repeatable)",
			Destination: &c.mcpArgs,
		},
		&cli.StringSliceFlag{
			Name:        "mcp-env",
			Sources:     cli.EnvVars("REAGENT_MCP_ENV"),
			Usage:       "Environment variable KEY=VALUE for the MCP server command (repeatable)",
			Destination: &c.mcpEnv,
		},
		&cli.StringFlag{
			Name:        "mcp-url",
			Sources:     cli.EnvVars("REAGENT_MCP_URL"),
			Usage:       "URL of a remote MCP server (SSE)",
			Destination: &c.mcpURL,
		},
		&cli.StringSliceFlag{
			Name:        "mcp-header",
			Sources:     cli.EnvVars("REAGENT_MCP_HEADERS"),
			Usage:       "HTTP header Name=Value sent to the remote MCP server (repeatable)",
			Destination: &c.mcpHeaders,
		},
		&cli.BoolFlag{
			Name:        "enable-webfetch",
			Sources:     cli.EnvVars("REAGENT_ENABLE_WEBFETCH"),
			Usage:       "Register the fetch_page tool",
			Destination: &c.enableWebfetch,
		},
		&cli.DurationFlag{
			Name:        "fetch-timeout",
			Value:       webfetch.DefaultTimeout,
			Sources:     cli.EnvVars("REAGENT_FETCH_TIMEOUT"),
			Usage:       "Timeout of one fetch_page call",
			Destination: &c.fetchTimeout,
		},
	}
}

// buildRegistry registers the built-in tools and the tools of configured MCP servers. The
// returned closer shuts down the MCP connections.
func (c *toolConfig) buildRegistry(ctx context.Context) (*reagent.Registry, func() error, error) {
	registry, err := reagent.NewRegistry(textlength.New())
	if err != nil {
		return nil, nil, err
	}

	if c.enableWebfetch {
		if err := registry.Register(webfetch.New(webfetch.WithTimeout(c.fetchTimeout))); err != nil {
			return nil, nil, err
		}
	}

	var clients []*mcp.Client
	closer := func() error {
		var errs []error
		for _, client := range clients {
			if err := client.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	if c.mcpCommand != "" {
		client, err := mcp.NewStdio(ctx, c.mcpCommand, c.mcpArgs, mcp.WithEnvVars(c.mcpEnv))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to start MCP server", goerr.V("command", c.mcpCommand))
		}
		clients = append(clients, client)
	}

	if c.mcpURL != "" {
		headers, err := parseKeyValues(c.mcpHeaders)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		client, err := mcp.NewSSE(ctx, c.mcpURL, mcp.WithHeaders(headers))
		if err != nil {
			_ = closer()
			return nil, nil, goerr.Wrap(err, "failed to connect MCP server", goerr.V("url", c.mcpURL))
		}
		clients = append(clients, client)
	}

	for _, client := range clients {
		if err := registry.RegisterToolSet(ctx, client); err != nil {
			_ = closer()
			return nil, nil, goerr.Wrap(err, "failed to register MCP tools", goerr.V("server", client.ServerName()))
		}
	}

	return registry, closer, nil
}

// parseKeyValues parses "Name=Value" entries.
func parseKeyValues(entries []string) (map[string]string, error) {
	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, goerr.New("invalid Name=Value entry", goerr.V("entry", entry))
		}
		result[key] = value
	}
	return result, nil
}
