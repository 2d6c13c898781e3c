package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesServiceAndTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "orderflow", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "order created", "order_id", int64(7))
	require.NoError(t, log.Sync())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "order created", rec["msg"])
	assert.Equal(t, "orderflow", rec["service"])
	assert.Equal(t, "abc123", rec["trace_id"])
	assert.EqualValues(t, 7, rec["order_id"])
}

func TestLoggerOmitsEmptyTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "orderflow", func(context.Context) string { return "" })

	log.Warn(context.Background(), "slow request")

	assert.NotContains(t, buf.String(), "trace_id")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestLoggerWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, LevelInfo, "orderflow", nil)

	base.With("request_id", "req-1").Info(context.Background(), "request", "status", 201)
	base.Info(context.Background(), "plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "orderflow", rec["service"])
	assert.EqualValues(t, 201, rec["status"])
	assert.NotContains(t, lines[1], "request_id")
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "orderflow", nil)

	log.Debug(context.Background(), "debug")
	log.Info(context.Background(), "info")
	log.Error(context.Background(), "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "boom")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{in: "", want: LevelInfo},
		{in: "DEBUG", want: LevelDebug},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "loud", want: LevelInfo, err: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}
