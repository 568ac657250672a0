package reagent

import (
	"context"
	"log/slog"
	"strings"
)

//go:generate go tool moq -out mock/mock_gen.go -pkg mock . Completer Tool

// CompletionRequest is one call to the completion service.
type CompletionRequest struct {
	// Prompt is the fully rendered prompt text.
	Prompt string

	// Stop lists sequences at which generation must stop. The returned text must not include them.
	Stop []string
}

func (r *CompletionRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("prompt_length", len(r.Prompt)),
		slog.Any("stop", r.Stop),
	)
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer is an opaque text-completion service. Implementations must sample
// deterministically (zero temperature) so that the same prompt gives the same text.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

func (f CompleterFunc) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// TruncateAtStop cuts text at the earliest occurrence of any stop sequence.
// The agent applies it to every completion in case the backend ignored the stop sequences.
func TruncateAtStop(text string, stop []string) string {
	end := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if idx := strings.Index(text, s); idx >= 0 && idx < end {
			end = idx
		}
	}
	return text[:end]
}
