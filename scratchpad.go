package reagent

import (
	"log/slog"
	"strings"
)

const (
	observationPrefix = MarkerObservation + ": "
	thoughtPrefix     = MarkerThought + " "
)

// Step is one finished tool call: the action the LLM chose and what the tool returned.
type Step struct {
	Action      *Action
	Observation string
}

func (s Step) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("tool", s.Action.Tool),
		slog.String("input", s.Action.Input),
		slog.String("observation", s.Observation),
	)
}

// Scratchpad is the chronological, append-only list of steps of a run.
type Scratchpad []Step

// Format serializes the scratchpad for the "agent_scratchpad" part of the prompt:
// each step's raw action log followed by its observation and a new thought prefix.
func (s Scratchpad) Format() string {
	var b strings.Builder
	for _, step := range s {
		b.WriteString(step.Action.Log)
		b.WriteString("\n")
		b.WriteString(observationPrefix)
		b.WriteString(step.Observation)
		b.WriteString("\n")
		b.WriteString(thoughtPrefix)
	}
	return b.String()
}

// clone returns a copy so callers of a finished run cannot change a running one.
func (s Scratchpad) clone() Scratchpad {
	out := make(Scratchpad, len(s))
	copy(out, s)
	return out
}
