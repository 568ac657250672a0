package replay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent"
	"github.com/m-mizutani/reagent/llm/replay"
	"github.com/m-mizutani/reagent/tools/textlength"
)

func TestLoadAndRun(t *testing.T) {
	client, err := replay.Load("testdata/dog.yaml")
	gt.NoError(t, err).Required()
	gt.Equal(t, client.Model(), "replay-dog")
	gt.Equal(t, client.Remaining(), 2)

	registry, err := reagent.NewRegistry(textlength.New())
	gt.NoError(t, err).Required()

	result, err := reagent.New(client, registry).Run(t.Context(), "What is the length in characters of the text DOG?")
	gt.NoError(t, err).Required()
	gt.Equal(t, result.Output(), "The text DOG has 3 characters.")
	gt.A(t, result.Scratchpad).Length(1)
	gt.Equal(t, result.Scratchpad[0].Observation, "3")
	gt.Equal(t, client.Remaining(), 0)
}

func TestExhausted(t *testing.T) {
	client := replay.NewFromTexts("Final Answer: one")

	resp, err := client.Complete(t.Context(), &reagent.CompletionRequest{Prompt: "p"})
	gt.NoError(t, err).Required()
	gt.Equal(t, resp.Text, "Final Answer: one")
	gt.Equal(t, resp.Model, replay.DefaultModel)

	_, err = client.Complete(t.Context(), &reagent.CompletionRequest{Prompt: "p"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, reagent.ErrCompletion))

	client.Reset()
	gt.Equal(t, client.Remaining(), 1)
}

func TestExpectMismatch(t *testing.T) {
	client := replay.New(replay.Script{
		Responses: []replay.Response{{Expect: "Observation: 3", Text: "Final Answer: 3"}},
	})

	_, err := client.Complete(t.Context(), &reagent.CompletionRequest{Prompt: "Observation: 4"})
	gt.True(t, errors.Is(err, reagent.ErrCompletion))
	// A mismatch does not consume the response.
	gt.Equal(t, client.Remaining(), 1)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	client := replay.NewFromTexts("Final Answer: x")
	_, err := client.Complete(ctx, &reagent.CompletionRequest{Prompt: "p"})
	gt.True(t, errors.Is(err, context.Canceled))
	gt.Equal(t, client.Remaining(), 1)
}

func TestParseError(t *testing.T) {
	_, err := replay.Parse([]byte("responses: [unclosed"))
	gt.Error(t, err)

	_, err = replay.Parse([]byte("model: x\n"))
	gt.Error(t, err)

	_, err = replay.Load("testdata/not_found.yaml")
	gt.Error(t, err)
}
