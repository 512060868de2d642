package logger

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Record is a flattened log entry handed to a Sink.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Attr returns the attribute value stored under key, or nil.
func (r Record) Attr(key string) any {
	return r.Attrs[key]
}

// Sink observes log records of a pipeline run. The caller owns it and passes it to
// the entry point that should report into it.
type Sink interface {
	Emit(ctx context.Context, r Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Record)

func (f SinkFunc) Emit(ctx context.Context, r Record) {
	f(ctx, r)
}

// WithSink returns a logger that writes to l and also forwards every enabled record
// to sink. A nil sink returns l unchanged.
func WithSink(l Interface, sink Sink) Interface {
	return l.WithSink(sink)
}

type teeHandler struct {
	handler slog.Handler
	sink    Sink
	attrs   []slog.Attr
	group   string
}

// NewTeeHandler wraps handler so that records are delivered to sink before being
// handled. The sink sees records the wrapped handler has enabled.
func NewTeeHandler(handler slog.Handler, sink Sink) slog.Handler {
	return &teeHandler{handler: handler, sink: sink}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.qualify(a.Key)] = a.Value.Resolve().Any()
		return true
	})
	h.sink.Emit(ctx, Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	return h.handler.Handle(ctx, r)
}

func (h *teeHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	return &teeHandler{
		handler: h.handler.WithAttrs(attrs),
		sink:    h.sink,
		attrs:   merged,
		group:   h.group,
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = strings.Join([]string{h.group, name}, ".")
	}
	return &teeHandler{
		handler: h.handler.WithGroup(name),
		sink:    h.sink,
		attrs:   h.attrs,
		group:   group,
	}
}
