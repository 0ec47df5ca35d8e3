package logger

import (
	"bytes"
	"encoding/json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"DEBUG":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		" ERROR ": zerolog.ErrorLevel,
		"PANIC":   zerolog.PanicLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for name, expected := range tests {
		assert.Equal(t, expected, ParseLevel(name), name)
	}
}

func TestNewLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "BatchDecoder", LOG_LEVEL_WARN)
	l.Info().Msg("dropped")
	l.Warn().Int("sequence", 3).Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	record := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "BatchDecoder", record["component"])
	assert.Equal(t, "kept", record["message"])
	assert.Equal(t, float64(3), record["sequence"])
}

func TestSupervisorHandleLine(t *testing.T) {
	var out bytes.Buffer
	var logs bytes.Buffer
	s := &supervisor{ctcLogger: newLogger(&logs, "Supervisor", LOG_LEVEL_INFO), out: &out}

	s.handleLine([]byte(`{"message":"decoded"}`))
	s.handleLine([]byte(""))
	s.handleLine([]byte("not json"))
	assert.Equal(t, "{\"message\":\"decoded\"}\n", out.String())
	assert.Contains(t, logs.String(), "not JSON formatted")

	s.handleLine([]byte("panic: index out of range"))
	s.handleLine([]byte(`{"message":"after panic"}`))
	assert.True(t, s.panicking)
	assert.Equal(t, "panic: index out of range\n{\"message\":\"after panic\"}\n", s.panicTrace.String())
	assert.Equal(t, "{\"message\":\"decoded\"}\n", out.String())
}
