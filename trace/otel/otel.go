// Package otel provides an OpenTelemetry trace handler for reagent.
//
// It bridges agent run events to OpenTelemetry spans, allowing
// integration with any OTel-compatible backend (Jaeger, Zipkin, OTLP, etc.).
//
// Basic usage with global TracerProvider:
//
//	agent := reagent.New(completer, registry, reagent.WithTrace(otel.New()))
//
// With explicit TracerProvider:
//
//	agent := reagent.New(completer, registry, reagent.WithTrace(
//	    otel.New(otel.WithTracerProvider(tp)),
//	))
package otel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/reagent/trace"
	otelAPI "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/m-mizutani/reagent"
)

// Option is a functional option for configuring the OTel handler.
type Option func(*handler)

// WithTracerProvider sets an explicit TracerProvider.
// If not set, the global TracerProvider is used.
func WithTracerProvider(tp otelTrace.TracerProvider) Option {
	return func(h *handler) {
		h.tracerProvider = tp
	}
}

type handler struct {
	tracerProvider otelTrace.TracerProvider
	tracer         otelTrace.Tracer
}

// New creates a new OTel trace handler.
func New(opts ...Option) trace.Handler {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.tracerProvider == nil {
		h.tracerProvider = otelAPI.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)

	return h
}

func endSpan(ctx context.Context, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *handler) StartRun(ctx context.Context, question string) context.Context {
	ctx, _ = h.tracer.Start(ctx, "run",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
		otelTrace.WithAttributes(runQuestionAttr(question)),
	)
	return ctx
}

func (h *handler) EndRun(ctx context.Context, output string, err error) {
	if output != "" {
		otelTrace.SpanFromContext(ctx).SetAttributes(runOutputAttr(output))
	}
	endSpan(ctx, err)
}

func (h *handler) StartCompletion(ctx context.Context) context.Context {
	ctx, _ = h.tracer.Start(ctx, "completion",
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
	)
	return ctx
}

func (h *handler) EndCompletion(ctx context.Context, data *trace.CompletionData, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if data != nil {
		span.SetAttributes(
			llmModelAttr(data.Model),
			llmInputTokensAttr(data.InputTokens),
			llmOutputTokensAttr(data.OutputTokens),
		)
	}
	endSpan(ctx, err)
}

func (h *handler) StartToolExec(ctx context.Context, toolName string, input string) context.Context {
	ctx, _ = h.tracer.Start(ctx, fmt.Sprintf("tool:%s", toolName),
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
		otelTrace.WithAttributes(toolNameAttr(toolName), toolInputAttr(input)),
	)
	return ctx
}

func (h *handler) EndToolExec(ctx context.Context, output string, err error) {
	otelTrace.SpanFromContext(ctx).SetAttributes(toolOutputAttr(output))
	endSpan(ctx, err)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	span := otelTrace.SpanFromContext(ctx)
	if data == nil {
		span.AddEvent(kind)
		return
	}

	b, err := json.Marshal(data)
	if err != nil {
		span.AddEvent(kind)
		return
	}
	span.AddEvent(kind, otelTrace.WithAttributes(eventDataAttr(string(b))))
}

func (h *handler) Finish(_ context.Context) error {
	// Spans are exported by the TracerProvider's SpanProcessor.
	return nil
}
