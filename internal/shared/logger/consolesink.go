package logger

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

// consoleSink prints pipeline records to a console through tint.
type consoleSink struct {
	handler slog.Handler
}

// NewConsoleSink returns a Sink that renders records to w at info level and
// above. Colour is enabled only when w is a terminal.
func NewConsoleSink(w io.Writer) Sink {
	return &consoleSink{handler: newTintHandler(w, slog.LevelInfo, !isTerminal(w))}
}

func (s *consoleSink) Emit(ctx context.Context, r Record) {
	if !s.handler.Enabled(ctx, r.Level) {
		return
	}
	rec := slog.NewRecord(r.Time, r.Level, r.Message, 0)
	keys := make([]string, 0, len(r.Attrs))
	for k := range r.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.AddAttrs(slog.Any(k, r.Attrs[k]))
	}
	_ = s.handler.Handle(ctx, rec)
}
