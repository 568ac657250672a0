package reagent

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrInvalidTool is returned when a tool is nil or has an empty name.
	ErrInvalidTool = errors.New("invalid tool")

	// ErrDuplicateTool is returned when a tool with the same name is already registered.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrToolNotFound is returned when the model asks for a tool that is not in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolExecution is returned when a tool fails and no ToolErrorHook recovered it.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrOutputParse is returned when the model output is neither an action nor a final answer.
	ErrOutputParse = errors.New("could not parse LLM output")

	// ErrCompletion is returned when the completion service fails.
	ErrCompletion = errors.New("completion failed")

	// ErrMaxIterationsExceeded is returned when the loop reaches the iteration limit without a final answer.
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")
)

var (
	// ErrTagParse marks errors caused by model output that could not be interpreted.
	ErrTagParse = goerr.NewTag("parse")

	// ErrTagUpstream marks errors raised by the completion service or a tool.
	ErrTagUpstream = goerr.NewTag("upstream")
)
