package trace

import (
	"context"
	"errors"
)

// multiHandler fans out trace events to multiple Handler implementations.
// Each handler receives its own isolated context so that, for example,
// two Recorders do not overwrite each other's current span.
type multiHandler struct {
	handlers []Handler
}

// Multi creates a Handler that forwards all events to the given handlers.
func Multi(handlers ...Handler) Handler {
	return &multiHandler{handlers: handlers}
}

type multiCtxKey struct{}

// getContexts retrieves per-handler contexts. If not found, the base context is used for each handler.
func (m *multiHandler) getContexts(ctx context.Context) []context.Context {
	if v, ok := ctx.Value(multiCtxKey{}).([]context.Context); ok && len(v) == len(m.handlers) {
		return v
	}
	ctxs := make([]context.Context, len(m.handlers))
	for i := range ctxs {
		ctxs[i] = ctx
	}
	return ctxs
}

func (m *multiHandler) wrapContexts(base context.Context, handlerCtxs []context.Context) context.Context {
	return context.WithValue(base, multiCtxKey{}, handlerCtxs)
}

func (m *multiHandler) start(ctx context.Context, fn func(h Handler, ctx context.Context) context.Context) context.Context {
	parentCtxs := m.getContexts(ctx)
	handlerCtxs := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		handlerCtxs[i] = fn(h, parentCtxs[i])
	}
	return m.wrapContexts(ctx, handlerCtxs)
}

func (m *multiHandler) each(ctx context.Context, fn func(h Handler, ctx context.Context)) {
	ctxs := m.getContexts(ctx)
	for i, h := range m.handlers {
		fn(h, ctxs[i])
	}
}

func (m *multiHandler) StartRun(ctx context.Context, question string) context.Context {
	return m.start(ctx, func(h Handler, ctx context.Context) context.Context {
		return h.StartRun(ctx, question)
	})
}

func (m *multiHandler) EndRun(ctx context.Context, output string, err error) {
	m.each(ctx, func(h Handler, ctx context.Context) {
		h.EndRun(ctx, output, err)
	})
}

func (m *multiHandler) StartCompletion(ctx context.Context) context.Context {
	return m.start(ctx, func(h Handler, ctx context.Context) context.Context {
		return h.StartCompletion(ctx)
	})
}

func (m *multiHandler) EndCompletion(ctx context.Context, data *CompletionData, err error) {
	m.each(ctx, func(h Handler, ctx context.Context) {
		h.EndCompletion(ctx, data, err)
	})
}

func (m *multiHandler) StartToolExec(ctx context.Context, toolName string, input string) context.Context {
	return m.start(ctx, func(h Handler, ctx context.Context) context.Context {
		return h.StartToolExec(ctx, toolName, input)
	})
}

func (m *multiHandler) EndToolExec(ctx context.Context, output string, err error) {
	m.each(ctx, func(h Handler, ctx context.Context) {
		h.EndToolExec(ctx, output, err)
	})
}

func (m *multiHandler) AddEvent(ctx context.Context, kind string, data any) {
	m.each(ctx, func(h Handler, ctx context.Context) {
		h.AddEvent(ctx, kind, data)
	})
}

func (m *multiHandler) Finish(ctx context.Context) error {
	var errs []error
	for _, h := range m.handlers {
		if err := h.Finish(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
