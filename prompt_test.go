package reagent_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent"
)

func TestScratchpadFormat(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var s reagent.Scratchpad
		gt.Equal(t, s.Format(), "")
	})

	t.Run("steps in order", func(t *testing.T) {
		s := reagent.Scratchpad{
			{
				Action:      &reagent.Action{Tool: "a", Input: "1", Log: "Thought: first\nAction: a\nAction Input: 1"},
				Observation: "one",
			},
			{
				Action:      &reagent.Action{Tool: "b", Input: "2", Log: "Action: b\nAction Input: 2"},
				Observation: "two",
			},
		}

		gt.Equal(t, s.Format(),
			"Thought: first\nAction: a\nAction Input: 1\nObservation: one\nThought: "+
				"Action: b\nAction Input: 2\nObservation: two\nThought: ")
	})

	t.Run("clone is independent", func(t *testing.T) {
		s := reagent.Scratchpad{{Action: &reagent.Action{Tool: "a"}, Observation: "x"}}
		c := s.Clone()
		c[0].Observation = "changed"
		gt.Equal(t, s[0].Observation, "x")
	})
}

func TestTemplateRenderer(t *testing.T) {
	specs := []reagent.ToolSpec{
		{Name: "get_text_length", Description: "Returns the length of a text by characters"},
	}

	t.Run("default template", func(t *testing.T) {
		renderer, err := reagent.NewTemplateRenderer(reagent.DefaultPromptTemplate)
		gt.NoError(t, err).Required()

		prompt, err := renderer.Render(reagent.PromptInput{
			Question: "What is the length in characters of the text DOG?",
			Tools:    specs,
		})
		gt.NoError(t, err).Required()

		gt.S(t, prompt).Contains("get_text_length: Returns the length of a text by characters")
		gt.S(t, prompt).Contains("should be one of [get_text_length]")
		gt.True(t, strings.HasSuffix(prompt, "Question: What is the length in characters of the text DOG?\nThought: "))
	})

	t.Run("scratchpad is appended after thought", func(t *testing.T) {
		renderer, err := reagent.NewTemplateRenderer(reagent.DefaultPromptTemplate)
		gt.NoError(t, err).Required()

		scratchpad := reagent.Scratchpad{
			{
				Action:      &reagent.Action{Tool: "get_text_length", Input: "DOG", Log: "Action: get_text_length\nAction Input: DOG"},
				Observation: "3",
			},
		}
		prompt, err := renderer.Render(reagent.PromptInput{Question: "Q", Tools: specs, Scratchpad: scratchpad})
		gt.NoError(t, err).Required()
		gt.True(t, strings.HasSuffix(prompt,
			"Question: Q\nThought: Action: get_text_length\nAction Input: DOG\nObservation: 3\nThought: "))
	})

	t.Run("custom template", func(t *testing.T) {
		renderer, err := reagent.NewTemplateRenderer("[{{.ToolNames}}] {{.Input}} | {{.AgentScratchpad}}")
		gt.NoError(t, err).Required()

		prompt, err := renderer.Render(reagent.PromptInput{Question: "hello", Tools: specs})
		gt.NoError(t, err)
		gt.Equal(t, prompt, "[get_text_length] hello | ")
	})

	t.Run("invalid template", func(t *testing.T) {
		_, err := reagent.NewTemplateRenderer("{{.Input")
		gt.Error(t, err)
	})

	t.Run("unknown placeholder", func(t *testing.T) {
		renderer, err := reagent.NewTemplateRenderer("{{.Unknown}}")
		gt.NoError(t, err).Required()

		_, err = renderer.Render(reagent.PromptInput{})
		gt.Error(t, err)
	})
}
