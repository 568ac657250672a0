package claude

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
)

var (
	// claudePromptScope is the logging scope for Claude prompts
	claudePromptScope = ctxlog.NewScope("claude_prompt", ctxlog.EnabledBy("REAGENT_LOGGING_CLAUDE_PROMPT"))

	// claudeResponseScope is the logging scope for Claude responses
	claudeResponseScope = ctxlog.NewScope("claude_response", ctxlog.EnabledBy("REAGENT_LOGGING_CLAUDE_RESPONSE"))
)

const (
	DefaultModel       = "claude-sonnet-4-5"
	DefaultVertexModel = "claude-sonnet-4-5@20250929"
	DefaultMaxTokens   = 1024
)

// Client is a completer backed by the Anthropic Messages API.
type Client struct {
	// apiClient is the API client interface for dependency injection.
	apiClient apiClient

	// model is the model to use for completions.
	model string

	// maxTokens limits the number of tokens to generate.
	maxTokens int64
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for completions.
// Default: [DefaultModel], or [DefaultVertexModel] for NewWithVertex.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: [DefaultMaxTokens]
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

func newClient(model string, options ...Option) *Client {
	client := &Client{
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

// New creates a new client for the Claude API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Claude API key is required")
	}

	client := newClient(DefaultModel, options...)

	// The SDK retries by default; failures are returned to the agent as they are.
	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	client.apiClient = &realAPIClient{client: &newClient}

	return client, nil
}

// NewWithVertex creates a client for Claude models served by Vertex AI. Credentials are taken
// from Application Default Credentials.
func NewWithVertex(ctx context.Context, region, projectID string, options ...Option) (*Client, error) {
	if region == "" {
		return nil, goerr.New("region is required")
	}
	if projectID == "" {
		return nil, goerr.New("projectID is required")
	}

	client := newClient(DefaultVertexModel, options...)

	newClient := anthropic.NewClient(
		vertex.WithGoogleAuth(ctx, region, projectID),
		option.WithMaxRetries(0),
	)
	client.apiClient = &realAPIClient{client: &newClient}

	return client, nil
}

// Model returns the model name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) createRequest(req *reagent.CompletionRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(0),
	}

	// The API rejects stop sequences made only of whitespace.
	for _, s := range req.Stop {
		if strings.TrimSpace(s) != "" {
			params.StopSequences = append(params.StopSequences, s)
		}
	}

	return params
}

// Complete implements reagent.Completer.
func (c *Client) Complete(ctx context.Context, req *reagent.CompletionRequest) (*reagent.CompletionResponse, error) {
	params := c.createRequest(req)

	if logger := ctxlog.From(ctx, claudePromptScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Claude prompt", "model", c.model, "prompt", req.Prompt, "stop", params.StopSequences)
	}

	resp, err := c.apiClient.MessagesNew(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", apiErrorOptions(err, c.model)...)
	}

	var b strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}
	text := b.String()

	if logger := ctxlog.From(ctx, claudeResponseScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Claude response",
			"text", text,
			"stop_reason", resp.StopReason,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
		)
	}

	model := string(resp.Model)
	if model == "" {
		model = c.model
	}

	return &reagent.CompletionResponse{
		Text:         text,
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func apiErrorOptions(err error, model string) []goerr.Option {
	opts := []goerr.Option{goerr.V("model", model)}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		opts = append(opts, goerr.V("status", apiErr.StatusCode))
	}
	return opts
}
