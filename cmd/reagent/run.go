package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/reagent"
	"github.com/m-mizutani/reagent/trace"
	"github.com/urfave/cli/v3"
)

const (
	defaultQuestion = "What is the length in characters of the text DOG?'"

	shutdownTimeout = 10 * time.Second
)

func runCommand() *cli.Command {
	var (
		provider      providerConfig
		tools         toolConfig
		tracing       traceConfig
		logging       logConfig
		maxIterations int
		timeout       time.Duration
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "max-iterations",
			Value:       reagent.DefaultMaxIterations,
			Sources:     cli.EnvVars("REAGENT_MAX_ITERATIONS"),
			Usage:       "Maximum number of completions in one run",
			Destination: &maxIterations,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Sources:     cli.EnvVars("REAGENT_TIMEOUT"),
			Usage:       "Timeout of the whole run (0 for none)",
			Destination: &timeout,
		},
	}
	flags = append(flags, provider.flags()...)
	flags = append(flags, tools.flags()...)
	flags = append(flags, tracing.flags()...)
	flags = append(flags, logging.flags()...)

	return &cli.Command{
		Name:      "run",
		Usage:     "Answer a question with the ReAct agent",
		ArgsUsage: "[question]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, err := logging.newLogger(errWriter(cmd))
			if err != nil {
				return err
			}

			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				question = defaultQuestion
			}

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			completer, err := provider.newCompleter(ctx)
			if err != nil {
				return err
			}

			registry, closeTools, err := tools.buildRegistry(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeTools(); err != nil {
					logger.Warn("failed to close tools", "error", err)
				}
			}()

			handler, shutdown, err := tracing.newHandler(ctx, logger, trace.TraceMetadata{
				Model:    completer.Model(),
				Provider: provider.provider,
			})
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Warn("failed to shutdown tracing", "error", err)
				}
			}()

			options := []reagent.Option{
				reagent.WithLogger(logger),
				reagent.WithMaxIterations(maxIterations),
			}
			if handler != nil {
				options = append(options, reagent.WithTrace(handler))
			}

			result, err := reagent.New(completer, registry, options...).Run(ctx, question)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(writer(cmd), result.Output())
			return err
		},
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
