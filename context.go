package reagent

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
)

// LoggerFromContext returns the logger of the running agent. Tools can use it to log
// with the run's attributes. It returns a discard logger outside of a run.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return ctxlog.From(ctx)
}

func ctxWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return ctxlog.With(ctx, logger)
}
