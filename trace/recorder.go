package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository for persisting trace data.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithMetadata sets the metadata for the trace.
func WithMetadata(meta TraceMetadata) Option {
	return func(r *Recorder) {
		r.metadata = meta
	}
}

// WithTraceID sets a custom trace ID.
// If not set or set to an empty string, a UUID v7 is generated automatically.
func WithTraceID(id string) Option {
	return func(r *Recorder) {
		r.traceID = id
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// Recorder collects tracing data of an agent run into an in-memory Trace structure.
// It implements the Handler interface and provides access to the collected Trace via Trace().
type Recorder struct {
	trace    *Trace
	mu       sync.Mutex
	repo     Repository
	metadata TraceMetadata
	traceID  string
	logger   *slog.Logger
}

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// context key types
type handlerKey struct{}
type currentSpanKey struct{}

// WithHandler stores the Handler in the context.
func WithHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

// HandlerFrom retrieves the Handler from the context. Returns nil if not set.
func HandlerFrom(ctx context.Context) Handler {
	h, _ := ctx.Value(handlerKey{}).(Handler)
	return h
}

func withCurrentSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, currentSpanKey{}, span)
}

func currentSpanFrom(ctx context.Context) *Span {
	s, _ := ctx.Value(currentSpanKey{}).(*Span)
	return s
}

func newSpanID() string {
	return uuid.New().String()
}

// StartRun starts the root run span. A Recorder holds one trace; starting a new run replaces it.
func (r *Recorder) StartRun(ctx context.Context, question string) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	traceID := r.traceID
	if traceID == "" {
		traceID = uuid.Must(uuid.NewV7()).String()
	}

	span := newSpan(nil, SpanKindRun, "run")
	r.trace = &Trace{
		TraceID:   traceID,
		RootSpan:  span,
		Metadata:  r.metadata,
		Question:  question,
		StartedAt: span.StartedAt,
	}

	return withCurrentSpan(ctx, span)
}

// EndRun ends the root run span and stores the final answer in the trace.
func (r *Recorder) EndRun(ctx context.Context, output string, err error) {
	r.endCurrent(ctx, SpanKindRun, err, func(span *Span) {
		if r.trace != nil {
			r.trace.EndedAt = span.EndedAt
			r.trace.Output = output
		}
	})
}

// StartCompletion starts a completion span under the current span.
func (r *Recorder) StartCompletion(ctx context.Context) context.Context {
	return r.startChild(ctx, SpanKindCompletion, "completion", nil)
}

// EndCompletion ends the completion span. data holds the prompt and the (truncated) completion text.
func (r *Recorder) EndCompletion(ctx context.Context, data *CompletionData, err error) {
	r.endCurrent(ctx, SpanKindCompletion, err, func(span *Span) {
		span.Completion = data
	})
}

// StartToolExec starts a tool_exec span named after the tool.
func (r *Recorder) StartToolExec(ctx context.Context, toolName string, input string) context.Context {
	return r.startChild(ctx, SpanKindToolExec, toolName, func(span *Span) {
		span.ToolExec = &ToolExecData{
			ToolName: toolName,
			Input:    input,
		}
	})
}

// EndToolExec ends the tool_exec span with the observation.
func (r *Recorder) EndToolExec(ctx context.Context, output string, err error) {
	r.endCurrent(ctx, SpanKindToolExec, err, func(span *Span) {
		span.ToolExec.Output = output
		if err != nil {
			span.ToolExec.Error = err.Error()
		}
	})
}

// AddEvent appends an instant event span, such as a parsed decision, to the current span.
func (r *Recorder) AddEvent(ctx context.Context, kind string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return
	}

	span := newSpan(parent, SpanKindEvent, kind)
	span.EndedAt = span.StartedAt
	span.Event = &EventData{Kind: kind, Data: data}
}

// Finish persists the trace to the Repository, if any.
func (r *Recorder) Finish(ctx context.Context) error {
	r.mu.Lock()
	trace, repo := r.trace, r.repo
	r.mu.Unlock()

	if trace == nil || repo == nil {
		return nil
	}

	if err := repo.Save(ctx, trace); err != nil {
		r.logger.Warn("failed to save trace", "trace_id", trace.TraceID, "error", err)
		return err
	}
	return nil
}

// Trace returns the trace of the last run. Returns nil if no run has started.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace
}

// newSpan creates a span and links it under parent when parent is not nil.
func newSpan(parent *Span, kind SpanKind, name string) *Span {
	span := &Span{
		SpanID:    newSpanID(),
		Kind:      kind,
		Name:      name,
		StartedAt: time.Now(),
		Status:    SpanStatusOK,
	}
	if parent != nil {
		span.ParentID = parent.SpanID
		parent.Children = append(parent.Children, span)
	}
	return span
}

// startChild is a no-op outside a run.
func (r *Recorder) startChild(ctx context.Context, kind SpanKind, name string, init func(*Span)) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return ctx
	}

	span := newSpan(parent, kind, name)
	if init != nil {
		init(span)
	}
	return withCurrentSpan(ctx, span)
}

// endCurrent closes the span of ctx if it has the given kind, then calls fill under the lock.
func (r *Recorder) endCurrent(ctx context.Context, kind SpanKind, err error, fill func(*Span)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != kind {
		return
	}

	span.EndedAt = time.Now()
	span.Duration = span.EndedAt.Sub(span.StartedAt)
	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
	fill(span)
}
