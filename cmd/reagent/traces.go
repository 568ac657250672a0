package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent/trace"
	"github.com/urfave/cli/v3"
)

type sourceConfig struct {
	location        string
	storageEndpoint string
}

func (c *sourceConfig) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Sources:     cli.EnvVars("REAGENT_TRACE_SOURCE"),
			Usage:       "Trace directory, or gs://bucket/prefix",
			Required:    true,
			Destination: &c.location,
		},
		&cli.StringFlag{
			Name:        "storage-endpoint",
			Sources:     cli.EnvVars("REAGENT_STORAGE_ENDPOINT"),
			Usage:       "Cloud Storage endpoint, for an emulator",
			Destination: &c.storageEndpoint,
		},
	}
}

func tracesCommand() *cli.Command {
	return &cli.Command{
		Name:  "traces",
		Usage: "Browse saved run traces",
		Commands: []*cli.Command{
			tracesListCommand(),
			tracesShowCommand(),
		},
	}
}

func tracesListCommand() *cli.Command {
	var (
		source    sourceConfig
		pageSize  int
		pageToken string
	)

	flags := append(source.flags(),
		&cli.IntFlag{
			Name:        "page-size",
			Value:       defaultPageSize,
			Usage:       "Number of traces per page",
			Destination: &pageSize,
		},
		&cli.StringFlag{
			Name:        "page-token",
			Usage:       "Page token printed by the previous list",
			Destination: &pageToken,
		},
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List saved traces",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := newTraceSource(ctx, source.location, source.storageEndpoint)
			if err != nil {
				return err
			}

			resp, err := src.List(ctx, listRequest{pageSize: pageSize, pageToken: pageToken})
			if err != nil {
				return err
			}

			w := writer(cmd)
			for _, t := range resp.traces {
				fmt.Fprintf(w, "%s\t%d\t%s\n", t.TraceID, t.Size, t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			if resp.nextPageToken != "" {
				fmt.Fprintf(w, "next page token: %s\n", resp.nextPageToken)
			}
			return nil
		},
	}
}

func tracesShowCommand() *cli.Command {
	var (
		source  sourceConfig
		rawJSON bool
	)

	flags := append(source.flags(),
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the trace as stored",
			Destination: &rawJSON,
		},
	)

	return &cli.Command{
		Name:      "show",
		Usage:     "Show one trace",
		ArgsUsage: "<trace_id>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			traceID := cmd.Args().First()
			if traceID == "" {
				return goerr.New("trace ID is required")
			}

			src, err := newTraceSource(ctx, source.location, source.storageEndpoint)
			if err != nil {
				return err
			}

			t, err := src.Get(ctx, traceID)
			if err != nil {
				return err
			}

			if rawJSON {
				data, err := trace.Marshal(t)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(writer(cmd), string(data))
				return err
			}

			writeTrace(writer(cmd), t)
			return nil
		},
	}
}

// writeTrace prints the span tree, one span per line.
func writeTrace(w io.Writer, t *trace.Trace) {
	fmt.Fprintf(w, "trace: %s\n", t.TraceID)
	if t.Metadata.Provider != "" || t.Metadata.Model != "" {
		fmt.Fprintf(w, "model: %s/%s\n", t.Metadata.Provider, t.Metadata.Model)
	}
	fmt.Fprintf(w, "question: %s\n", t.Question)
	fmt.Fprintf(w, "output: %s\n", t.Output)
	if t.RootSpan != nil {
		writeSpan(w, t.RootSpan, 0)
	}
}

func writeSpan(w io.Writer, span *trace.Span, depth int) {
	line := []string{strings.Repeat("  ", depth) + span.Name, string(span.Status)}
	if span.Kind != trace.SpanKindEvent {
		line = append(line, span.Duration.String())
	}

	switch {
	case span.Completion != nil:
		line = append(line, fmt.Sprintf("model=%s tokens=%d/%d",
			span.Completion.Model, span.Completion.InputTokens, span.Completion.OutputTokens))
	case span.ToolExec != nil:
		line = append(line, fmt.Sprintf("input=%q output=%q", span.ToolExec.Input, span.ToolExec.Output))
	}
	if span.Error != "" {
		line = append(line, fmt.Sprintf("error=%q", span.Error))
	}

	fmt.Fprintln(w, strings.Join(line, " "))
	for _, child := range span.Children {
		writeSpan(w, child, depth+1)
	}
}
