package reagent

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Markers of the text protocol between the prompt and the parser. They must match the
// format described in the prompt template.
const (
	MarkerThought     = "Thought:"
	MarkerAction      = "Action:"
	MarkerActionInput = "Action Input:"
	MarkerObservation = "Observation"
	MarkerFinalAnswer = "Final Answer:"

	// DefaultStopSequence stops generation before the model invents an observation by itself.
	DefaultStopSequence = "\n" + MarkerObservation
)

// quoteChars are stripped from both ends of extracted fields.
const quoteChars = "\"'`"

// inputTerminators end the action input when they appear after "Action Input:".
var inputTerminators = []string{
	"\n" + MarkerObservation,
	"\n" + MarkerThought,
	"\n" + MarkerAction,
}

// OutputParser converts a raw completion into a Decision.
type OutputParser interface {
	Parse(text string) (Decision, error)
}

// ParserFunc adapts a function to OutputParser.
type ParserFunc func(text string) (Decision, error)

func (f ParserFunc) Parse(text string) (Decision, error) {
	return f(text)
}

// ReActParser parses the single-input ReAct format:
//
//	Thought: ...
//	Action: tool_name
//	Action Input: input text
//
// or
//
//	Thought: ...
//	Final Answer: answer
//
// A final answer takes priority over an action when both appear.
type ReActParser struct{}

// NewReActParser returns the default parser.
func NewReActParser() *ReActParser {
	return &ReActParser{}
}

// Parse implements OutputParser.
func (p *ReActParser) Parse(text string) (Decision, error) {
	if idx := strings.Index(text, MarkerFinalAnswer); idx >= 0 {
		output := cleanField(text[idx+len(MarkerFinalAnswer):])
		return &Finish{
			ReturnValues: map[string]string{ReturnValueOutput: output},
			Log:          text,
		}, nil
	}

	actionIdx := strings.Index(text, MarkerAction)
	if actionIdx < 0 {
		return nil, newParseError(text, "missing 'Action:' after 'Thought:'")
	}
	afterAction := text[actionIdx+len(MarkerAction):]

	inputIdx := strings.Index(afterAction, MarkerActionInput)
	if inputIdx < 0 {
		return nil, newParseError(text, "missing 'Action Input:' after 'Action:'")
	}

	toolName := cleanField(afterAction[:inputIdx])
	if toolName == "" {
		return nil, newParseError(text, "empty tool name in 'Action:'")
	}

	input := afterAction[inputIdx+len(MarkerActionInput):]
	if end := firstTerminator(input); end >= 0 {
		input = input[:end]
	}

	return &Action{
		Tool:  toolName,
		Input: cleanField(input),
		Log:   text,
	}, nil
}

func firstTerminator(s string) int {
	end := -1
	for _, term := range inputTerminators {
		if idx := strings.Index(s, term); idx >= 0 && (end < 0 || idx < end) {
			end = idx
		}
	}
	return end
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, quoteChars)
	return strings.TrimSpace(s)
}

func newParseError(text, reason string) error {
	return goerr.Wrap(ErrOutputParse, fmt.Sprintf("%s: `%s`", reason, text),
		goerr.V("llm_output", text),
		goerr.V("reason", reason),
		goerr.Tag(ErrTagParse),
	)
}

// ParseErrorOutput returns the raw model output carried by an ErrOutputParse error.
func ParseErrorOutput(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	v, ok := goerr.Values(err)["llm_output"].(string)
	return v, ok
}
