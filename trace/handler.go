package trace

import "context"

// Handler is the interface for trace backends.
// Implementations receive lifecycle events of an agent run
// and can record, export, or forward them as needed.
type Handler interface {
	// StartRun starts the root span of an agent run.
	StartRun(ctx context.Context, question string) context.Context
	// EndRun ends the root span. output is the final answer, empty on error.
	EndRun(ctx context.Context, output string, err error)

	// StartCompletion starts a completion span.
	StartCompletion(ctx context.Context) context.Context
	// EndCompletion ends a completion span with the given data.
	EndCompletion(ctx context.Context, data *CompletionData, err error)

	// StartToolExec starts a tool execution span.
	StartToolExec(ctx context.Context, toolName string, input string) context.Context
	// EndToolExec ends a tool execution span with the observation.
	EndToolExec(ctx context.Context, output string, err error)

	// AddEvent adds an event to the current span.
	AddEvent(ctx context.Context, kind string, data any)

	// Finish completes the trace and performs any final operations.
	Finish(ctx context.Context) error
}
