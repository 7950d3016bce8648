package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vr-theatre-marketplace/internal/logging"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("production", &buf)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("test response"))
	})

	req := httptest.NewRequest("POST", "/redeem", nil)
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()

	chimw.RequestID(RequestLogger(logger)(handler)).ServeHTTP(rr, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/redeem", entry["path"])
	assert.Equal(t, float64(http.StatusConflict), entry["status"])
	assert.Equal(t, float64(len("test response")), entry["bytes"])
	assert.Equal(t, "test-agent", entry["user_agent"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRequestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	RequestLogger(logger)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}
