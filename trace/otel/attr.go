package otel

import "go.opentelemetry.io/otel/attribute"

// Attribute keys following OpenTelemetry semantic conventions where applicable.
func runQuestionAttr(question string) attribute.KeyValue {
	return attribute.String("agent.question", question)
}

func runOutputAttr(output string) attribute.KeyValue {
	return attribute.String("agent.output", output)
}

func llmModelAttr(model string) attribute.KeyValue {
	return attribute.String("llm.model", model)
}

func llmInputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("llm.input_tokens", tokens)
}

func llmOutputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("llm.output_tokens", tokens)
}

func toolNameAttr(name string) attribute.KeyValue {
	return attribute.String("tool.name", name)
}

func toolInputAttr(input string) attribute.KeyValue {
	return attribute.String("tool.input", input)
}

func toolOutputAttr(output string) attribute.KeyValue {
	return attribute.String("tool.output", output)
}

func eventDataAttr(data string) attribute.KeyValue {
	return attribute.String("event.data", data)
}
