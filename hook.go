package reagent

import "context"

type (
	// PromptHook is called with the rendered prompt before each completion.
	PromptHook func(ctx context.Context, prompt string) error

	// CompletionHook is called with the raw completion text before parsing.
	CompletionHook func(ctx context.Context, text string) error

	// ActionHook is called before a tool runs.
	ActionHook func(ctx context.Context, action *Action) error

	// ObservationHook is called after a step has been appended to the scratchpad.
	ObservationHook func(ctx context.Context, step Step) error

	// ToolErrorHook decides what happens when a tool fails. Returning an observation
	// and a nil error lets the run continue with that observation; returning an error aborts the run.
	ToolErrorHook func(ctx context.Context, err error, action *Action) (string, error)
)

func defaultPromptHook(ctx context.Context, prompt string) error {
	return nil
}

func defaultCompletionHook(ctx context.Context, text string) error {
	return nil
}

func defaultActionHook(ctx context.Context, action *Action) error {
	return nil
}

func defaultObservationHook(ctx context.Context, step Step) error {
	return nil
}

func defaultToolErrorHook(ctx context.Context, err error, action *Action) (string, error) {
	return "", err
}
