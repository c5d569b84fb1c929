package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelNone, ParseLevel("none"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLogger_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, WithConsole(&buf))

	l.Info("Request", "GET /users")
	l.Debug("Request Body", `{"x":1}`)

	out := buf.String()
	assert.Contains(t, out, "GET /users")
	assert.NotContains(t, out, `{"x":1}`)
}

func TestLogger_ErrorBypassesGate(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelNone, WithConsole(&buf))

	l.Info("Request", "should be silent")
	l.Error("Transport Failure", "connection refused")

	out := buf.String()
	assert.NotContains(t, out, "should be silent")
	assert.Contains(t, out, "connection refused")
}

func TestLogger_FileBlockFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l := New(LevelInfo, WithConsole(&bytes.Buffer{}), WithFile(path))

	l.Info("Response", map[string]any{"status": 200})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n--- Response ---\n")
	assert.Contains(t, string(data), "\"status\": 200")
}

func TestLogger_FileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	l := New(LevelInfo, WithConsole(&bytes.Buffer{}), WithFile(path))
	l.Info("First", "one")
	require.NoError(t, l.Close())

	l = New(LevelInfo, WithConsole(&bytes.Buffer{}), WithFile(path))
	l.Info("Second", "two")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "--- First ---")
	assert.Contains(t, string(data), "--- Second ---")
}

func TestLogger_RendersStringsVerbatim(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelDebug, WithConsole(&buf))

	l.Debug("Request Body", `{"raw":"text"}`)

	assert.Contains(t, buf.String(), `{"raw":"text"}`)
}
