package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionalSourceHandler(t *testing.T) {
	tests := []struct {
		name             string
		level            slog.Level
		showSourceLevels []slog.Level
		shouldHaveSource bool
	}{
		{"info without source", slog.LevelInfo, []slog.Level{slog.LevelWarn, slog.LevelError}, false},
		{"warn with source", slog.LevelWarn, []slog.Level{slog.LevelWarn, slog.LevelError}, true},
		{"error with source", slog.LevelError, []slog.Level{slog.LevelWarn, slog.LevelError}, true},
		{"info in debug mode", slog.LevelInfo, []slog.Level{slog.LevelDebug, slog.LevelInfo}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			log := slog.New(NewConditionalSourceHandler(base, tt.showSourceLevels...))

			log.Log(context.Background(), tt.level, "recalc finished")

			assert.Equal(t, tt.shouldHaveSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
		})
	}
}

func TestConditionalSourceHandler_KeepsAttrsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewConditionalSourceHandler(base, slog.LevelError)

	slog.New(handler).With("ticket_id", 12).Info("ticket escalated")

	assert.Contains(t, buf.String(), "ticket_id=12")
	assert.NotContains(t, buf.String(), "source=")
	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
}
