package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf, Component: "engine"})

	l.Info("ignored")
	l.Warn("flow.executor.invocation", "operation", "create_task")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "flow.executor.invocation", rec["msg"])
	assert.Equal(t, "create_task", rec["operation"])
	assert.Equal(t, "engine", rec["component"])
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))

	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}

func TestNewZapLogger(t *testing.T) {
	z, err := NewZapLogger(&LoggerConfig{Level: LogLevelDebug, Format: "text"})
	require.NoError(t, err)
	z.Debug("zap.debug", "k", "v")
	z.Info("zap.info")
	_ = z.Sync()
}
