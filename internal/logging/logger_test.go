package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.With("component", "webhook").InfoContext(ctx, "event processed", "session_id", "cs_1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "event processed", record["msg"])
	assert.Equal(t, "req-42", record["request_id"])
	assert.Equal(t, "webhook", record["component"])
	assert.Equal(t, "cs_1", record["session_id"])
}

func TestNewWithWriter_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("development", &buf)

	logger.Debug("quote computed", "total", 4698)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "total=4698")
	assert.NotContains(t, buf.String(), "request_id")
}
