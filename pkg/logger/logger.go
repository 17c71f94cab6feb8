package logger

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// AttrFunc extracts extra attributes from a request context.
type AttrFunc func(ctx context.Context) []slog.Attr

// ContextHandler is a wrapper around slog.Handler that adds trace_id, request_id
// and whatever the extra AttrFuncs find in the context.
type ContextHandler struct {
	slog.Handler
	extra []AttrFunc
}

// NewContextHandler creates a new ContextHandler.
func NewContextHandler(handler slog.Handler, extra ...AttrFunc) *ContextHandler {
	return &ContextHandler{
		Handler: handler,
		extra:   extra,
	}
}

// Handle processes a log record and adds context information.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		r.AddAttrs(slog.String("trace_id", span.SpanContext().TraceID().String()))
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		r.AddAttrs(slog.String("request_id", reqID))
	}
	for _, fn := range h.extra {
		r.AddAttrs(fn(ctx)...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		Handler: h.Handler.WithAttrs(attrs),
		extra:   h.extra,
	}
}

func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{
		Handler: h.Handler.WithGroup(group),
		extra:   h.extra,
	}
}
