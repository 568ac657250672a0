package reagent

import (
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultPromptTemplate is the classic ReAct prompt. Placeholders:
// {{.Tools}} (one "name: description" line per tool), {{.ToolNames}} (comma-joined names),
// {{.Input}} (the question) and {{.AgentScratchpad}} (serialized steps).
const DefaultPromptTemplate = `Answer the following questions as best you can. You have access to the following tools:

{{.Tools}}

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{{.ToolNames}}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Begin!

Question: {{.Input}}
Thought: {{.AgentScratchpad}}`

// PromptInput is what the agent hands to a PromptRenderer on every iteration.
type PromptInput struct {
	Question   string
	Tools      []ToolSpec
	Scratchpad Scratchpad
}

// PromptRenderer builds the full prompt text sent to the completion service.
type PromptRenderer interface {
	Render(input PromptInput) (string, error)
}

// TemplateRenderer renders prompts with text/template.
type TemplateRenderer struct {
	tmpl *template.Template
}

// promptData is the data passed to the template.
type promptData struct {
	Tools           string
	ToolNames       string
	Input           string
	AgentScratchpad string
}

// NewTemplateRenderer parses the template text. See DefaultPromptTemplate for the placeholders.
func NewTemplateRenderer(text string) (*TemplateRenderer, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompt template")
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

// defaultRenderer is built once; DefaultPromptTemplate is a constant so parsing cannot fail.
var defaultRenderer = func() *TemplateRenderer {
	r, err := NewTemplateRenderer(DefaultPromptTemplate)
	if err != nil {
		panic(err)
	}
	return r
}()

// Render implements PromptRenderer.
func (r *TemplateRenderer) Render(input PromptInput) (string, error) {
	data := promptData{
		Tools:           renderToolDescriptions(input.Tools),
		ToolNames:       renderToolNames(input.Tools),
		Input:           input.Question,
		AgentScratchpad: input.Scratchpad.Format(),
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt")
	}
	return b.String(), nil
}
