package reagent

import "log/slog"

// DecisionKind tags the variant of a Decision.
type DecisionKind int

const (
	// DecisionKindAction means the LLM asked to run a tool.
	DecisionKindAction DecisionKind = iota + 1

	// DecisionKindFinish means the LLM produced the final answer.
	DecisionKindFinish
)

// String returns the string representation of the decision kind.
func (x DecisionKind) String() string {
	switch x {
	case DecisionKindAction:
		return "action"
	case DecisionKindFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// ReturnValueOutput is the key of the final answer in Finish.ReturnValues.
const ReturnValueOutput = "output"

// Decision is the parsed output of one completion. It is either *Action or *Finish.
// Switch on Kind() to find out which one.
type Decision interface {
	isDecision() restrictedValue
	Kind() DecisionKind
	// RawLog returns the full completion text the decision was parsed from.
	RawLog() string
	LogValue() slog.Value
}

type restrictedValue struct{}

// Action is a request to run a tool with an input.
type Action struct {
	Tool  string
	Input string
	Log   string
}

func (a *Action) isDecision() restrictedValue {
	return restrictedValue{}
}

func (a *Action) Kind() DecisionKind {
	return DecisionKindAction
}

func (a *Action) RawLog() string {
	return a.Log
}

func (a *Action) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", a.Kind().String()),
		slog.String("tool", a.Tool),
		slog.String("input", a.Input),
	)
}

// Finish is the final answer of the run.
type Finish struct {
	// ReturnValues always has ReturnValueOutput.
	ReturnValues map[string]string
	Log          string
}

func (f *Finish) isDecision() restrictedValue {
	return restrictedValue{}
}

func (f *Finish) Kind() DecisionKind {
	return DecisionKindFinish
}

func (f *Finish) RawLog() string {
	return f.Log
}

// Output returns the final answer text.
func (f *Finish) Output() string {
	return f.ReturnValues[ReturnValueOutput]
}

func (f *Finish) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", f.Kind().String()),
		slog.String("output", f.Output()),
	)
}
