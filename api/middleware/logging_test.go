package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/pkg/logger"
)

func TestLoggingRecordsStatusAndBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api", Level: zerolog.InfoLevel, Output: buf})

	handler := RequestID(logg)(Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"x"}`))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offers", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusConflict, resp.Code)

	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "request.complete", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/v1/offers", entry["path"])
	assert.EqualValues(t, http.StatusConflict, entry["status"])
	assert.EqualValues(t, 13, entry["bytes"])
}

func TestLoggingDefaultsStatusAndWarnsOnServerError(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "api", Level: zerolog.InfoLevel, Output: buf})

	silent := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	silent.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	failing := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	first := map[string]any{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.EqualValues(t, http.StatusOK, first["status"])

	second := map[string]any{}
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "warn", second["level"])
	assert.EqualValues(t, http.StatusBadGateway, second["status"])
}

func TestLoggingWithoutLoggerPassesThrough(t *testing.T) {
	handler := Logging(nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
