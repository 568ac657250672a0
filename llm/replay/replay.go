// Package replay provides a completer that plays back scripted completions. It lets agents and
// the CLI run without a model backend.
//
// A script is a YAML document:
//
//	model: replay
//	responses:
//	  - text: |-
//	      I should count the characters.
//	      Action: get_text_length
//	      Action Input: DOG
//	  - expect: "Observation: 3"
//	    text: |-
//	      I now know the final answer
//	      Final Answer: 3
package replay

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent"
	"gopkg.in/yaml.v3"
)

const DefaultModel = "replay"

// Response is one scripted completion.
type Response struct {
	// Text is returned as the completion text.
	Text string `yaml:"text"`

	// Expect, if set, must be contained in the prompt; otherwise Complete fails.
	Expect string `yaml:"expect,omitempty"`
}

// Script is the content of a replay file.
type Script struct {
	Model     string     `yaml:"model,omitempty"`
	Responses []Response `yaml:"responses"`
}

// Client returns the responses of a script in order. It is safe for concurrent use, but
// concurrent runs share the same cursor.
type Client struct {
	script Script

	mu   sync.Mutex
	next int
}

// New creates a client from a script.
func New(script Script) *Client {
	if script.Model == "" {
		script.Model = DefaultModel
	}
	return &Client{script: script}
}

// NewFromTexts creates a client returning the texts in order.
func NewFromTexts(texts ...string) *Client {
	script := Script{}
	for _, text := range texts {
		script.Responses = append(script.Responses, Response{Text: text})
	}
	return New(script)
}

// Parse reads a YAML script.
func Parse(data []byte) (*Client, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, goerr.Wrap(err, "failed to parse replay script")
	}
	if len(script.Responses) == 0 {
		return nil, goerr.New("replay script has no responses")
	}
	return New(script), nil
}

// Load reads a YAML script from a file.
func Load(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read replay script", goerr.V("path", path))
	}

	client, err := Parse(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid replay script", goerr.V("path", path))
	}
	return client, nil
}

// Model returns the model name reported in responses.
func (c *Client) Model() string {
	return c.script.Model
}

// Remaining returns the number of responses not played yet.
func (c *Client) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.script.Responses) - c.next
}

// Reset rewinds the script to the first response.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
}

// Complete implements reagent.Completer.
func (c *Client) Complete(ctx context.Context, req *reagent.CompletionRequest) (*reagent.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "replay canceled")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.next >= len(c.script.Responses) {
		return nil, goerr.Wrap(reagent.ErrCompletion, "replay script is exhausted",
			goerr.V("played", c.next))
	}

	resp := c.script.Responses[c.next]
	if resp.Expect != "" && !strings.Contains(req.Prompt, resp.Expect) {
		return nil, goerr.Wrap(reagent.ErrCompletion, "prompt does not match replay script",
			goerr.V("index", c.next),
			goerr.V("expect", resp.Expect),
		)
	}
	c.next++

	reagent.LoggerFromContext(ctx).Debug("replay response", "index", c.next-1, "text", resp.Text)

	return &reagent.CompletionResponse{
		Text:         resp.Text,
		Model:        c.script.Model,
		InputTokens:  len(strings.Fields(req.Prompt)),
		OutputTokens: len(strings.Fields(resp.Text)),
	}, nil
}
