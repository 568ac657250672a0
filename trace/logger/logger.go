// Package logger provides a trace.Handler that writes agent run events to slog.
// It replaces ad-hoc prompt printing: enable Completion to see every prompt and completion text.
package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/reagent/trace"
)

// Event represents a trace event type that can be selectively enabled.
type Event int

const (
	// Run enables logging of run start/end.
	Run Event = iota
	// CompletionPrompt enables logging of the rendered prompt sent to the completion service.
	CompletionPrompt
	// CompletionText enables logging of the completion text and token usage.
	CompletionText
	// ToolExec enables logging of tool execution (name, input, observation, duration).
	ToolExec
	// CustomEvent enables logging of agent events such as parsed decisions.
	CustomEvent

	eventCount // sentinel for iteration
)

type config struct {
	logger *slog.Logger
	events map[Event]bool
}

// Option configures the logger handler.
type Option func(*config)

// WithLogger sets a custom slog.Logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEvents enables only the specified event types.
// When not specified, all events are enabled.
func WithEvents(events ...Event) Option {
	return func(c *config) {
		c.events = make(map[Event]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}
}

type handler struct {
	cfg config
}

// New creates a new trace.Handler that logs trace events via slog.
func New(opts ...Option) trace.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.events == nil {
		cfg.events = make(map[Event]bool, eventCount)
		for i := Event(0); i < eventCount; i++ {
			cfg.events[i] = true
		}
	}

	return &handler{cfg: cfg}
}

func (h *handler) logger() *slog.Logger {
	if h.cfg.logger != nil {
		return h.cfg.logger
	}
	return slog.Default()
}

func (h *handler) enabled(e Event) bool {
	return h.cfg.events[e]
}

type startTimeKey struct{}

func withStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func startTimeFrom(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey{}).(time.Time)
	return t
}

type toolInfoKey struct{}

type toolInfo struct {
	name  string
	input string
}

func withToolInfo(ctx context.Context, info toolInfo) context.Context {
	return context.WithValue(ctx, toolInfoKey{}, info)
}

func toolInfoFrom(ctx context.Context) toolInfo {
	info, _ := ctx.Value(toolInfoKey{}).(toolInfo)
	return info
}

// StartRun logs run start.
func (h *handler) StartRun(ctx context.Context, question string) context.Context {
	if h.enabled(Run) {
		h.logger().InfoContext(ctx, "run started", slog.String("question", question))
	}
	return withStartTime(ctx, time.Now())
}

// EndRun logs run end with duration, output and error.
func (h *handler) EndRun(ctx context.Context, output string, err error) {
	if !h.enabled(Run) {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if output != "" {
		attrs = append(attrs, slog.String("output", output))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "run ended", attrs...)
}

// StartCompletion records the start time for duration calculation.
func (h *handler) StartCompletion(ctx context.Context) context.Context {
	return withStartTime(ctx, time.Now())
}

// EndCompletion logs the completion. CompletionPrompt controls the prompt,
// CompletionText controls the generated text. Model and token usage are included if either is enabled.
func (h *handler) EndCompletion(ctx context.Context, data *trace.CompletionData, err error) {
	promptEnabled := h.enabled(CompletionPrompt)
	textEnabled := h.enabled(CompletionText)
	if !promptEnabled && !textEnabled {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}

	if data != nil {
		attrs = append(attrs,
			slog.String("model", data.Model),
			slog.Int("input_tokens", data.InputTokens),
			slog.Int("output_tokens", data.OutputTokens),
		)
		if promptEnabled {
			attrs = append(attrs, slog.String("prompt", data.Prompt))
		}
		if textEnabled {
			attrs = append(attrs, slog.String("text", data.Text))
		}
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	h.logger().InfoContext(ctx, "completion", attrs...)
}

// StartToolExec records the start time and tool info for EndToolExec.
func (h *handler) StartToolExec(ctx context.Context, toolName string, input string) context.Context {
	ctx = withStartTime(ctx, time.Now())
	return withToolInfo(ctx, toolInfo{name: toolName, input: input})
}

// EndToolExec logs tool execution details.
func (h *handler) EndToolExec(ctx context.Context, output string, err error) {
	if !h.enabled(ToolExec) {
		return
	}

	info := toolInfoFrom(ctx)
	attrs := []any{
		slog.String("tool", info.name),
		slog.String("input", info.input),
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
		slog.String("observation", output),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "tool execution", attrs...)
}

// AddEvent logs a custom event.
func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	if !h.enabled(CustomEvent) {
		return
	}

	h.logger().InfoContext(ctx, "event",
		slog.String("kind", kind),
		slog.Any("data", data),
	)
}

// Finish is a no-op for the logger handler. Persistence is the Recorder's responsibility.
func (h *handler) Finish(_ context.Context) error {
	return nil
}
