package openai

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
	"github.com/sashabaranov/go-openai"
)

var (
	// openaiPromptScope is the logging scope for OpenAI prompts
	openaiPromptScope = ctxlog.NewScope("openai_prompt", ctxlog.EnabledBy("REAGENT_LOGGING_OPENAI_PROMPT"))

	// openaiResponseScope is the logging scope for OpenAI responses
	openaiResponseScope = ctxlog.NewScope("openai_response", ctxlog.EnabledBy("REAGENT_LOGGING_OPENAI_RESPONSE"))
)

const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 1024

	// zeroTemperature is sent instead of 0 because go-openai drops a zero temperature
	// (omitempty) and the API then falls back to its default of 1.
	zeroTemperature = math.SmallestNonzeroFloat32
)

// Client is a completer backed by the OpenAI chat completion API. The prompt is sent as a
// single user message.
type Client struct {
	// apiClient is the API client interface for dependency injection.
	apiClient apiClient

	// model is the model (or Azure deployment) to use.
	model string

	// maxTokens limits the number of tokens to generate.
	maxTokens int

	// baseURL is the custom base URL for the OpenAI API.
	baseURL string

	// azure is set by NewAzure.
	azure bool
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for completions. See [DefaultModel].
// For Azure, the model is the deployment name and is set by NewAzure.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithMaxTokens sets the maximum number of tokens to generate. Default: [DefaultMaxTokens].
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithBaseURL sets the custom base URL for the OpenAI API.
// Allows usage with compatible endpoints, proxies, or self-hosted instances.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func newClient(options ...Option) *Client {
	client := &Client{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// New creates a new client for the OpenAI API.
// It requires an API key and can be configured with additional options.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required")
	}

	client := newClient(options...)

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.apiClient = &realAPIClient{client: openai.NewClientWithConfig(config)}

	return client, nil
}

// NewAzure creates a client for an Azure OpenAI deployment.
// endpoint is like "https://my-resource.openai.azure.com/".
func NewAzure(ctx context.Context, apiKey, endpoint, deployment string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Azure OpenAI API key is required")
	}
	if endpoint == "" {
		return nil, goerr.New("Azure OpenAI endpoint is required")
	}
	if deployment == "" {
		return nil, goerr.New("Azure OpenAI deployment is required")
	}

	client := newClient(options...)
	client.model = deployment
	client.azure = true

	config := openai.DefaultAzureConfig(apiKey, endpoint)
	config.AzureModelMapperFunc = func(model string) string {
		return deployment
	}
	client.apiClient = &realAPIClient{client: openai.NewClientWithConfig(config)}

	return client, nil
}

// Model returns the model or deployment name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) createRequest(req *reagent.CompletionRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: zeroTemperature,
		MaxTokens:   c.maxTokens,
		Stop:        req.Stop,
	}
}

// Complete implements reagent.Completer.
func (c *Client) Complete(ctx context.Context, req *reagent.CompletionRequest) (*reagent.CompletionResponse, error) {
	openaiReq := c.createRequest(req)

	if logger := ctxlog.From(ctx, openaiPromptScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("OpenAI prompt", "model", c.model, "azure", c.azure, "prompt", req.Prompt, "stop", req.Stop)
	}

	resp, err := c.apiClient.CreateChatCompletion(ctx, openaiReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", apiErrorOptions(err, c.model)...)
	}

	if len(resp.Choices) == 0 {
		return nil, goerr.New("no choice in chat completion response", goerr.V("model", c.model), goerr.V("id", resp.ID))
	}

	text := resp.Choices[0].Message.Content
	if logger := ctxlog.From(ctx, openaiResponseScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("OpenAI response",
			"text", text,
			"finish_reason", resp.Choices[0].FinishReason,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
		)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}

	return &reagent.CompletionResponse{
		Text:         text,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// apiErrorOptions adds the model and, for API errors, the status and code to the error.
func apiErrorOptions(err error, model string) []goerr.Option {
	opts := []goerr.Option{goerr.V("model", model)}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		opts = append(opts,
			goerr.V("status", apiErr.HTTPStatusCode),
			goerr.V("type", apiErr.Type),
			goerr.V("code", apiErr.Code),
		)
	}
	return opts
}
