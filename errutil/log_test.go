package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/voicequest/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("LOAD_FAILED").
		With("dir", "games/missing").
		Errorf("no .lua files found")

	errutil.LogError(logger, "loading game", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "loading game", entry["msg"])
	assert.Equal(t, "LOAD_FAILED", entry["code"])
	assert.Contains(t, entry["context"], "dir")
}

func TestLogError_WrappedCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := oops.Code("CAPABILITY_FAILED").With("node", "detective.AskPlayerName.Ask").Errorf("microphone unavailable")
	errutil.LogError(logger, "session ended", oops.Wrapf(inner, "listening"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "CAPABILITY_FAILED", entry["code"])
	assert.Contains(t, entry["error"], "microphone unavailable")
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "loading game", errors.New("standard error"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}

func TestCode(t *testing.T) {
	assert.Equal(t, "GRAPH_INVALID", errutil.Code(oops.Code("GRAPH_INVALID").Errorf("bad")))
	assert.Equal(t, "GRAPH_INVALID", errutil.Code(oops.Wrapf(oops.Code("GRAPH_INVALID").Errorf("bad"), "outer")))
	assert.Empty(t, errutil.Code(errors.New("plain")))
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.Code("SNAPSHOT_INVALID").With("path", "detective.Nowhere").Errorf("no such node")
	errutil.AssertErrorCode(t, err, "SNAPSHOT_INVALID")
	errutil.AssertErrorContext(t, err, "path", "detective.Nowhere")
}
