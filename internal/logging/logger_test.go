package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	debug := NewLogger(Config{Level: "debug"})
	assert.True(t, debug.Enabled(context.Background(), slog.LevelDebug))

	warn := NewLogger(Config{Level: "warn"})
	assert.False(t, warn.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, warn.Enabled(context.Background(), slog.LevelWarn))

	// Unknown levels fall back to info.
	fallback := NewLogger(Config{Level: "verbose"})
	assert.False(t, fallback.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, fallback.Enabled(context.Background(), slog.LevelInfo))
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := NewLogger(Config{Level: "info", Format: "text"})
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	// Missing logger falls back to the default.
	assert.NotNil(t, FromContext(context.Background()))
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := WithRequestIDContext(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "", GetRequestID(context.Background()))
}
