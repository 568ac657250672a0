package gemini

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
	"google.golang.org/genai"
)

const (
	DefaultModel     = "gemini-2.5-flash"
	DefaultMaxTokens = 1024

	// maxStopSequences is the limit of the Gemini API.
	maxStopSequences = 5
)

var (
	// geminiPromptScope is the logging scope for Gemini prompts
	geminiPromptScope = ctxlog.NewScope("gemini_prompt", ctxlog.EnabledBy("REAGENT_LOGGING_GEMINI_PROMPT"))

	// geminiResponseScope is the logging scope for Gemini responses
	geminiResponseScope = ctxlog.NewScope("gemini_response", ctxlog.EnabledBy("REAGENT_LOGGING_GEMINI_RESPONSE"))
)

// Client is a completer backed by Gemini, either on Vertex AI or the Gemini API.
type Client struct {
	// apiClient is the API client interface for dependency injection.
	apiClient apiClient

	// model is the model to use for completions.
	model string

	// maxTokens limits the number of tokens to generate.
	maxTokens int32

	// thinkingBudget is sent as is. 0 disables thinking so that the whole output budget goes
	// to the answer.
	thinkingBudget int32
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for completions. Default: [DefaultModel].
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens sets the maximum number of tokens to generate. Default: [DefaultMaxTokens].
func WithMaxTokens(maxTokens int32) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithThinkingBudget sets the thinking budget. Default is 0 (no thinking).
func WithThinkingBudget(budget int32) Option {
	return func(c *Client) {
		c.thinkingBudget = budget
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

// New creates a client for Gemini on Vertex AI. Credentials are taken from Application
// Default Credentials.
func New(ctx context.Context, projectID, location string, options ...Option) (*Client, error) {
	if projectID == "" {
		return nil, goerr.New("projectID is required")
	}
	if location == "" {
		return nil, goerr.New("location is required")
	}

	return newWithConfig(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}, options...)
}

// NewWithAPIKey creates a client for the Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Gemini API key is required")
	}

	return newWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, options...)
}

func newWithConfig(ctx context.Context, config *genai.ClientConfig, options ...Option) (*Client, error) {
	client := newClient(options...)

	genaiClient, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client", goerr.V("backend", config.Backend))
	}
	client.apiClient = &realAPIClient{client: genaiClient}

	return client, nil
}

// Model returns the model name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) createConfig(req *reagent.CompletionRequest) *genai.GenerateContentConfig {
	temperature := float32(0)
	budget := c.thinkingBudget

	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  c.maxTokens,
		ResponseMIMEType: "text/plain",
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: &budget,
		},
	}

	stop := req.Stop
	if len(stop) > maxStopSequences {
		stop = stop[:maxStopSequences]
	}
	config.StopSequences = stop

	return config
}

// Complete implements reagent.Completer.
func (c *Client) Complete(ctx context.Context, req *reagent.CompletionRequest) (*reagent.CompletionResponse, error) {
	config := c.createConfig(req)

	if logger := ctxlog.From(ctx, geminiPromptScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Gemini prompt", "model", c.model, "prompt", req.Prompt, "stop", config.StopSequences)
	}

	resp, err := c.apiClient.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", c.model))
	}
	if len(resp.Candidates) == 0 {
		return nil, goerr.New("no candidate in Gemini response", goerr.V("model", c.model))
	}

	text := resp.Text()

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if logger := ctxlog.From(ctx, geminiResponseScope); logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Gemini response",
			"text", text,
			"finish_reason", resp.Candidates[0].FinishReason,
			"input_tokens", inputTokens,
			"output_tokens", outputTokens,
		)
	}

	model := resp.ModelVersion
	if model == "" {
		model = c.model
	}

	return &reagent.CompletionResponse{
		Text:         text,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}
