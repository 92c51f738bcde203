package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", Encoding: "json", Service: "taskboard", Output: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	WithRequestID(ctx, log).Debug("task created")
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "task created", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "taskboard", entry["service"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Output: &buf})
	require.NoError(t, err)

	log.Info("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestWithRequestIDWithoutID(t *testing.T) {
	log, err := New(Config{Output: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Same(t, log, WithRequestID(context.Background(), log))
	assert.Empty(t, RequestID(context.Background()))
}
