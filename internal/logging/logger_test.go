package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/rendis/recipelint/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.DebugContext(WithValidationID(context.Background(), "v1"), "walk done", "lines", 3)
	assert.Contains(t, buf.String(), `"validation_id":"v1"`)
	assert.Contains(t, buf.String(), `"lines":3`)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))

	_, err = New(Config{Level: "loud"})
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeConfig))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
