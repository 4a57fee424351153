package logger

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewLogger(TestConfig())
		ctx := ContextWithLogger(t.Context(), expected)

		actual := FromContext(ctx)

		require.NotNil(t, actual)
		assert.Equal(t, expected, actual)
	})

	t.Run("Should fall back to default logger", func(t *testing.T) {
		require.NotNil(t, FromContext(t.Context()))
		require.NotNil(t, FromContext(context.WithValue(t.Context(), LoggerCtxKey, "not a logger")))
		require.NotNil(t, FromContext(context.WithValue(t.Context(), LoggerCtxKey, (Logger)(nil))))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should convert all log levels to charm log levels", func(t *testing.T) {
		cases := []struct {
			level    LogLevel
			expected int
		}{
			{DebugLevel, -4},
			{InfoLevel, 0},
			{WarnLevel, 4},
			{ErrorLevel, 8},
			{DisabledLevel, 1000},
			{LogLevel("unknown"), 0},
		}
		for _, tc := range cases {
			assert.Equal(t, tc.expected, int(tc.level.ToCharmlogLevel()), "level %s", tc.level)
		}
	})

	t.Run("Should parse flag values case-insensitively", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel(" DEBUG "))
		assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write text output with context fields", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, TimeFormat: "15:04:05"})

		log.With("chunk", 2, "total", 5).Info("Processando chunk")

		out := buf.String()
		assert.Contains(t, out, "Processando chunk")
		assert.Contains(t, out, "chunk")
		assert.Contains(t, out, "total")
	})

	t.Run("Should emit JSON when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true, TimeFormat: "15:04:05"})

		log.Info("run finished", "clusters", 3)

		assert.Contains(t, buf.String(), `"msg":"run finished"`)
		assert.Contains(t, buf.String(), `"clusters":3`)
	})

	t.Run("Should respect level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: WarnLevel, Output: &buf, TimeFormat: "15:04:05"})

		log.Debug("debug message")
		log.Info("info message")
		log.Warn("warn message")

		assert.NotContains(t, buf.String(), "debug message")
		assert.NotContains(t, buf.String(), "info message")
		assert.Contains(t, buf.String(), "warn message")
	})

	t.Run("Should disable all logging when DisabledLevel is used", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DisabledLevel, Output: &buf, TimeFormat: "15:04:05"})

		log.Error("error message")

		assert.Empty(t, buf.String())
	})
}

func TestConfigDefaults(t *testing.T) {
	t.Run("Should provide quiet test configuration", func(t *testing.T) {
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
		assert.True(t, IsTestEnvironment())
	})
}
