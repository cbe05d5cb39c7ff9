package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"canteen/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{
		Level:  "warn",
		Format: "json",
		Output: &buf,
		Attrs:  []slog.Attr{slog.String("service", "canteen")},
	})

	l.Info("dropped")
	l.Warn("kept", "order_id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "canteen", rec["service"])
	assert.EqualValues(t, 7, rec["order_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("bogus"))
}
