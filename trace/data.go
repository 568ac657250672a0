package trace

// CompletionData holds data specific to a completion span.
type CompletionData struct {
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`

	Prompt string   `json:"prompt"`
	Stop   []string `json:"stop,omitempty"`
	Text   string   `json:"text"`
}

// ToolExecData holds data specific to a tool execution span.
type ToolExecData struct {
	ToolName string `json:"tool_name"`
	Input    string `json:"input"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
}

// EventData holds data specific to an event span.
// Kind is defined by the agent (e.g. "decision"); Data is any JSON-serializable value.
type EventData struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}
