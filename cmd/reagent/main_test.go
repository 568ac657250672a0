package main_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/reagent"
	main "github.com/m-mizutani/reagent/cmd/reagent"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := main.NewApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(t.Context(), append([]string{"reagent"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestRunReplay(t *testing.T) {
	dir := t.TempDir()

	out, logs, err := runApp(t, "run",
		"--provider", "replay",
		"--replay-file", "testdata/dog.yaml",
		"--trace-dir", dir,
		"--log-format", "json",
	)
	gt.NoError(t, err).Required()
	gt.Equal(t, out, "The text DOG has 3 characters.\n")
	gt.S(t, logs).Contains(`"msg":"reagent run finished"`)

	resp := gt.R1(main.NewLocalSource(dir).List(t.Context(), 10, "")).NoError(t)
	gt.A(t, resp.Traces).Length(1).Required()

	tr := gt.R1(main.NewLocalSource(dir).Get(t.Context(), resp.Traces[0].TraceID)).NoError(t)
	gt.Equal(t, tr.Metadata.Provider, "replay")
	gt.Equal(t, tr.Metadata.Model, "replay-dog")
	gt.Equal(t, tr.Output, "The text DOG has 3 characters.")

	t.Run("traces list", func(t *testing.T) {
		out, _, err := runApp(t, "traces", "list", "--source", dir)
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains(tr.TraceID)
	})

	t.Run("traces show", func(t *testing.T) {
		out, _, err := runApp(t, "traces", "show", "--source", dir, tr.TraceID)
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains("question: What is the length in characters of the text DOG?")
		gt.S(t, out).Contains("model: replay/replay-dog")
		gt.S(t, out).Contains(`get_text_length ok`)
		gt.S(t, out).Contains(`output="3"`)
	})

	t.Run("traces show json", func(t *testing.T) {
		out, _, err := runApp(t, "traces", "show", "--source", dir, "--json", tr.TraceID)
		gt.NoError(t, err).Required()
		gt.S(t, out).Contains(`"trace_id": "` + tr.TraceID + `"`)
	})

	t.Run("traces show without ID", func(t *testing.T) {
		_, _, err := runApp(t, "traces", "show", "--source", dir)
		gt.Error(t, err)
	})
}

func TestRunQuestionArgument(t *testing.T) {
	script := filepath.Join(t.TempDir(), "script.yaml")
	gt.NoError(t, os.WriteFile(script, []byte(`responses:
  - expect: "Question: How are you?"
    text: "Final Answer: fine"
`), 0600)).Required()

	out, _, err := runApp(t, "run", "--provider", "replay", "--replay-file", script, "How", "are", "you?")
	gt.NoError(t, err).Required()
	gt.Equal(t, out, "fine\n")
}

func TestRunMaxIterations(t *testing.T) {
	script := filepath.Join(t.TempDir(), "loop.yaml")
	loop := "  - text: \"Action: get_text_length\\nAction Input: DOG\"\n"
	gt.NoError(t, os.WriteFile(script, []byte("responses:\n"+strings.Repeat(loop, 3)), 0600)).Required()

	_, _, err := runApp(t, "run",
		"--provider", "replay",
		"--replay-file", script,
		"--max-iterations", "2",
	)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, reagent.ErrMaxIterationsExceeded))
}

func TestRunVerbose(t *testing.T) {
	_, logs, err := runApp(t, "run",
		"--provider", "replay",
		"--replay-file", "testdata/dog.yaml",
		"--verbose",
	)
	gt.NoError(t, err).Required()
	gt.S(t, logs).Contains("Action Input: \\\"DOG\\\"")
}

func TestRunConfigErrors(t *testing.T) {
	t.Setenv("REAGENT_API_KEY", "")

	testCases := map[string][]string{
		"unknown provider":      {"--provider", "unknown"},
		"openai without key":    {"--provider", "openai"},
		"azure without config":  {"--provider", "azure", "--api-key", "k"},
		"claude without key":    {"--provider", "claude"},
		"gemini without key":    {"--provider", "gemini"},
		"replay without file":   {"--provider", "replay"},
		"replay missing file":   {"--provider", "replay", "--replay-file", "testdata/missing.yaml"},
		"invalid log level":     {"--provider", "replay", "--replay-file", "testdata/dog.yaml", "--log-level", "loud"},
		"invalid log format":    {"--provider", "replay", "--replay-file", "testdata/dog.yaml", "--log-format", "xml"},
		"dir and bucket":        {"--provider", "replay", "--replay-file", "testdata/dog.yaml", "--trace-dir", "x", "--trace-bucket", "y"},
		"unknown otlp protocol": {"--provider", "replay", "--replay-file", "testdata/dog.yaml", "--otlp-endpoint", "localhost:4317", "--otlp-protocol", "udp"},
		"invalid mcp header":    {"--provider", "replay", "--replay-file", "testdata/dog.yaml", "--mcp-url", "http://localhost:1", "--mcp-header", "broken"},
	}

	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := runApp(t, append([]string{"run"}, args...)...)
			gt.Error(t, err)
		})
	}
}

func TestToolsCommand(t *testing.T) {
	t.Run("built-in", func(t *testing.T) {
		out, _, err := runApp(t, "tools")
		gt.NoError(t, err).Required()
		gt.Equal(t, out, "get_text_length: Returns the length of a text by characters\n")
	})

	t.Run("with webfetch", func(t *testing.T) {
		out, _, err := runApp(t, "tools", "--enable-webfetch")
		gt.NoError(t, err).Required()
		lines := strings.Split(strings.TrimSpace(out), "\n")
		gt.A(t, lines).Length(2).Required()
		gt.True(t, strings.HasPrefix(lines[1], "fetch_page: "))
	})
}

func TestParseGSURI(t *testing.T) {
	t.Run("bucket only", func(t *testing.T) {
		bucket, prefix, err := main.ParseGSURI("gs://my-bucket")
		gt.NoError(t, err)
		gt.Equal(t, bucket, "my-bucket")
		gt.Equal(t, prefix, "")
	})

	t.Run("bucket with trailing slash", func(t *testing.T) {
		bucket, prefix, err := main.ParseGSURI("gs://my-bucket/")
		gt.NoError(t, err)
		gt.Equal(t, bucket, "my-bucket")
		gt.Equal(t, prefix, "")
	})

	t.Run("bucket and prefix", func(t *testing.T) {
		bucket, prefix, err := main.ParseGSURI("gs://my-bucket/path/to/traces/")
		gt.NoError(t, err)
		gt.Equal(t, bucket, "my-bucket")
		gt.Equal(t, prefix, "path/to/traces/")
	})

	t.Run("prefix without trailing slash", func(t *testing.T) {
		_, prefix, err := main.ParseGSURI("gs://my-bucket/traces")
		gt.NoError(t, err)
		gt.Equal(t, prefix, "traces/")
	})

	t.Run("missing gs:// prefix", func(t *testing.T) {
		_, _, err := main.ParseGSURI("s3://my-bucket")
		gt.Error(t, err)
	})

	t.Run("empty URI", func(t *testing.T) {
		_, _, err := main.ParseGSURI("gs://")
		gt.Error(t, err)
	})
}

func TestParseKeyValues(t *testing.T) {
	got, err := main.ParseKeyValues([]string{"Authorization=Bearer a=b", "X-Empty="})
	gt.NoError(t, err).Required()
	gt.Equal(t, got, map[string]string{"Authorization": "Bearer a=b", "X-Empty": ""})

	_, err = main.ParseKeyValues([]string{"=value"})
	gt.Error(t, err)
}

func TestCSStore(t *testing.T) {
	bucket, ok := os.LookupEnv("TEST_TRACE_BUCKET")
	if !ok {
		t.Skip("TEST_TRACE_BUCKET is not set")
	}

	src, err := main.NewCSSource(t.Context(), bucket, "reagent-test/")
	gt.NoError(t, err).Required()

	dir := t.TempDir()
	saveTraces(t, dir, "cs-trace-001")
	tr := gt.R1(main.NewLocalSource(dir).Get(t.Context(), "cs-trace-001")).NoError(t)

	gt.NoError(t, src.Save(t.Context(), tr)).Required()

	got := gt.R1(src.Get(t.Context(), "cs-trace-001")).NoError(t)
	gt.Equal(t, got.Question, tr.Question)

	resp := gt.R1(src.List(t.Context(), 100, "")).NoError(t)
	var found bool
	for _, s := range resp.Traces {
		found = found || s.TraceID == "cs-trace-001"
	}
	gt.True(t, found)
}
