package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLines(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	t.Cleanup(func() { SetLevel(LevelInfo) })
	return &buf
}

func TestInfoWritesKeyValues(t *testing.T) {
	buf := captureLines(t)

	Info("reminder scheduled", "title", "Submit Report", "count", 2, 42, "ignored", "odd")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "reminder scheduled", line["message"])
	assert.Equal(t, "Submit Report", line["title"])
	assert.EqualValues(t, 2, line["count"])
	assert.NotContains(t, line, "odd")
}

func TestErrorIncludesErr(t *testing.T) {
	buf := captureLines(t)

	Error("import failed", errors.New("boom"), "id", "work")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "work", line["id"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := captureLines(t)

	Debug("noisy")
	assert.Zero(t, buf.Len())

	SetLevel(LevelDebug)
	Debug("noisy")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
