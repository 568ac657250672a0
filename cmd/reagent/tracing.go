package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reagent/trace"
	traceLogger "github.com/m-mizutani/reagent/trace/logger"
	traceOtel "github.com/m-mizutani/reagent/trace/otel"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "reagent"

type traceConfig struct {
	dir             string
	bucket          string
	prefix          string
	storageEndpoint string
	otlpEndpoint    string
	otlpProtocol    string
	otlpInsecure    bool
	verbose         bool
}

func (c *traceConfig) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "trace-dir",
			Sources:     cli.EnvVars("REAGENT_TRACE_DIR"),
			Usage:       "Directory to save the run trace as JSON",
			Destination: &c.dir,
		},
		&cli.StringFlag{
			Name:        "trace-bucket",
			Sources:     cli.EnvVars("REAGENT_TRACE_BUCKET"),
			Usage:       "Cloud Storage bucket to save the run trace",
			Destination: &c.bucket,
		},
		&cli.StringFlag{
			Name:        "trace-prefix",
			Sources:     cli.EnvVars("REAGENT_TRACE_PREFIX"),
			Usage:       "Object name prefix in the trace bucket",
			Destination: &c.prefix,
		},
		&cli.StringFlag{
			Name:        "storage-endpoint",
			Sources:     cli.EnvVars("REAGENT_STORAGE_ENDPOINT"),
			Usage:       "Cloud Storage endpoint, for an emulator",
			Destination: &c.storageEndpoint,
		},
		&cli.StringFlag{
			Name:        "otlp-endpoint",
			Sources:     cli.EnvVars("REAGENT_OTLP_ENDPOINT"),
			Usage:       "OTLP endpoint to export spans (e.g. localhost:4317)",
			Destination: &c.otlpEndpoint,
		},
		&cli.StringFlag{
			Name:        "otlp-protocol",
			Value:       "grpc",
			Sources:     cli.EnvVars("REAGENT_OTLP_PROTOCOL"),
			Usage:       "OTLP protocol (grpc, http)",
			Destination: &c.otlpProtocol,
		},
		&cli.BoolFlag{
			Name:        "otlp-insecure",
			Sources:     cli.EnvVars("REAGENT_OTLP_INSECURE"),
			Usage:       "Disable TLS for the OTLP endpoint",
			Destination: &c.otlpInsecure,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Sources:     cli.EnvVars("REAGENT_VERBOSE"),
			Usage:       "Log every prompt, completion and tool execution",
			Destination: &c.verbose,
		},
	}
}

// newHandler builds the trace handler of a run. It returns nil when tracing is not configured.
// shutdown flushes exporters and must be called after the run.
func (c *traceConfig) newHandler(ctx context.Context, logger *slog.Logger, meta trace.TraceMetadata) (trace.Handler, func(context.Context) error, error) {
	var handlers []trace.Handler
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	repo, err := c.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	if repo != nil {
		handlers = append(handlers, trace.New(
			trace.WithRepository(repo),
			trace.WithMetadata(meta),
			trace.WithLogger(logger),
		))
		if store, ok := repo.(*csStore); ok {
			shutdowns = append(shutdowns, func(context.Context) error { return store.Close() })
		}
	}

	if c.otlpEndpoint != "" {
		tp, err := c.newTracerProvider(ctx)
		if err != nil {
			_ = shutdown(ctx)
			return nil, nil, err
		}
		handlers = append(handlers, traceOtel.New(traceOtel.WithTracerProvider(tp)))
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if c.verbose {
		handlers = append(handlers, traceLogger.New(
			traceLogger.WithLogger(logger),
			traceLogger.WithEvents(
				traceLogger.CompletionPrompt,
				traceLogger.CompletionText,
				traceLogger.ToolExec,
				traceLogger.CustomEvent,
			),
		))
	}

	switch len(handlers) {
	case 0:
		return nil, shutdown, nil
	case 1:
		return handlers[0], shutdown, nil
	default:
		return trace.Multi(handlers...), shutdown, nil
	}
}

func (c *traceConfig) newRepository(ctx context.Context) (trace.Repository, error) {
	switch {
	case c.dir != "" && c.bucket != "":
		return nil, goerr.New("--trace-dir and --trace-bucket are mutually exclusive")
	case c.dir != "":
		return trace.NewFileRepository(c.dir), nil
	case c.bucket != "":
		return newCSStore(ctx, c.bucket, c.prefix, c.storageEndpoint)
	default:
		return nil, nil
	}
}

func (c *traceConfig) newTracerProvider(ctx context.Context) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create OTel resource")
	}

	var exporter sdktrace.SpanExporter
	switch c.otlpProtocol {
	case "http":
		options := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.otlpEndpoint)}
		if c.otlpInsecure {
			options = append(options, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, options...)
	case "", "grpc":
		options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.otlpEndpoint)}
		if c.otlpInsecure {
			options = append(options, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, options...)
	default:
		return nil, goerr.New("unknown OTLP protocol", goerr.V("protocol", c.otlpProtocol))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create OTLP exporter", goerr.V("endpoint", c.otlpEndpoint))
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	), nil
}
