package otel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent/trace"
	traceOtel "github.com/m-mizutani/reagent/trace/otel"
	"go.opentelemetry.io/otel/codes"
	sdkTrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestHandler() (trace.Handler, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdkTrace.NewTracerProvider(
		sdkTrace.WithSyncer(exporter),
	)
	h := traceOtel.New(traceOtel.WithTracerProvider(tp))
	return h, exporter
}

func findSpan(spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

func TestOTelHandlerRun(t *testing.T) {
	h, exporter := setupTestHandler()
	ctx := context.Background()

	ctx = h.StartRun(ctx, "q")
	h.EndRun(ctx, "a", nil)

	spans := exporter.GetSpans()
	gt.Equal(t, len(spans), 1)
	gt.Equal(t, spans[0].Name, "run")
}

func TestOTelHandlerRunWithError(t *testing.T) {
	h, exporter := setupTestHandler()
	ctx := context.Background()

	ctx = h.StartRun(ctx, "q")
	h.EndRun(ctx, "", errors.New("test error"))

	spans := exporter.GetSpans()
	gt.Equal(t, len(spans), 1)
	gt.Equal(t, len(spans[0].Events), 1) // error event recorded
	gt.Equal(t, spans[0].Status.Code, codes.Error)
}

func TestOTelHandlerCompletion(t *testing.T) {
	h, exporter := setupTestHandler()
	ctx := context.Background()

	ctx = h.StartRun(ctx, "q")
	cCtx := h.StartCompletion(ctx)
	h.EndCompletion(cCtx, &trace.CompletionData{
		Model:        "test-model",
		InputTokens:  100,
		OutputTokens: 50,
	}, nil)
	h.EndRun(ctx, "a", nil)

	spans := exporter.GetSpans()
	gt.Equal(t, len(spans), 2)

	cSpan := findSpan(spans, "completion")
	gt.Value(t, cSpan).NotNil()
	run := findSpan(spans, "run")
	gt.Equal(t, cSpan.Parent.SpanID(), run.SpanContext.SpanID())
}

func TestOTelHandlerToolExec(t *testing.T) {
	h, exporter := setupTestHandler()
	ctx := context.Background()

	ctx = h.StartRun(ctx, "q")
	toolCtx := h.StartToolExec(ctx, "get_text_length", "DOG")
	h.EndToolExec(toolCtx, "3", nil)
	h.EndRun(ctx, "3", nil)

	spans := exporter.GetSpans()
	gt.Equal(t, len(spans), 2)
	gt.Value(t, findSpan(spans, "tool:get_text_length")).NotNil()
}

func TestOTelHandlerAddEvent(t *testing.T) {
	h, exporter := setupTestHandler()
	ctx := context.Background()

	ctx = h.StartRun(ctx, "q")
	h.AddEvent(ctx, "decision", map[string]string{"kind": "finish"})
	h.AddEvent(ctx, "empty", nil)
	h.EndRun(ctx, "a", nil)

	spans := exporter.GetSpans()
	gt.Equal(t, len(spans), 1)
	gt.Equal(t, len(spans[0].Events), 2)
	gt.Equal(t, spans[0].Events[0].Name, "decision")
	gt.NoError(t, h.Finish(ctx))
}
