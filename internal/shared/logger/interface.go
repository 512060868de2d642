package logger

import (
	"io"
	"log/slog"
)

// Interface is the logger handed to use cases. Every call takes alternating
// key/value pairs; a run that reports to a Sink gets its logger from WithSink.
type Interface interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	With(keysAndValues ...any) Interface
	// Named scopes records to one component, e.g. "ingest" or "send_overdue".
	Named(name string) Interface
	// WithSink also forwards every enabled record to sink.
	WithSink(sink Sink) Interface
}

type slogLogger struct {
	logger *slog.Logger
}

func NewLogger() Interface {
	return &slogLogger{logger: Get()}
}

// NewNopLogger discards everything. Used by tests and by callers that supply a Sink only.
func NewNopLogger() Interface {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *slogLogger) Debugw(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogLogger) Infow(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *slogLogger) Warnw(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *slogLogger) Errorw(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *slogLogger) With(keysAndValues ...any) Interface {
	return &slogLogger{logger: l.logger.With(keysAndValues...)}
}

func (l *slogLogger) Named(name string) Interface {
	return &slogLogger{logger: l.logger.With("component", name)}
}

func (l *slogLogger) WithSink(sink Sink) Interface {
	if sink == nil {
		return l
	}
	return &slogLogger{logger: slog.New(NewTeeHandler(l.logger.Handler(), sink))}
}
