package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureAccessLog(t *testing.T, h http.Handler, req *http.Request, quiet ...string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Logger(logger, quiet...)(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"cred_1"}`))
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/ws_1/credentials", nil)
	req.Header.Set("User-Agent", "builder/2.0")

	entry := captureAccessLog(t, h, req)

	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/v1/workspaces/ws_1/credentials", entry["path"])
	assert.EqualValues(t, 201, entry["status_code"])
	assert.EqualValues(t, 15, entry["bytes"])
	assert.Equal(t, "builder/2.0", entry["user_agent"])
}

func TestLogger_NeverLogsCredentials(t *testing.T) {
	t.Parallel()

	const key = "fb_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trudesk/tickettypes", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("X-API-Key", key)
	Logger(logger)(okHandler()).ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, buf.String(), "fb_live_")
	assert.NotContains(t, buf.String(), "Bearer")
}

func TestLogger_RoutePattern(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(Logger(logger))
	r.Get("/api/typebots/{typebotId}/results/{resultId}/ticket", func(w http.ResponseWriter, r *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/typebots/t1/results/r1/ticket", nil))

	assert.Contains(t, buf.String(), `"route":"/api/typebots/{typebotId}/results/{resultId}/ticket"`)
}

func TestAccessLevel(t *testing.T) {
	t.Parallel()

	quiet := []string{"/healthz"}
	tests := []struct {
		status int
		path   string
		want   slog.Level
	}{
		{http.StatusOK, "/api/v1/trudesk/tickettypes", slog.LevelInfo},
		{http.StatusNoContent, "/api/v1/api-keys/k1", slog.LevelInfo},
		{http.StatusOK, "/healthz", slog.LevelDebug},
		{http.StatusServiceUnavailable, "/healthz", slog.LevelError},
		{http.StatusUnauthorized, "/api/v1/trudesk/tickettypes", slog.LevelWarn},
		{http.StatusTooManyRequests, "/embed/t1", slog.LevelWarn},
		{http.StatusBadGateway, "/api/v1/trudesk/tickettypes", slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, accessLevel(tt.status, tt.path, quiet), "%d %s", tt.status, tt.path)
	}
}

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	rec := newStatusRecorder(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, rec.code())

	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	_, _ = rec.Write([]byte("abc"))

	assert.Equal(t, http.StatusAccepted, rec.code())
	assert.Equal(t, 3, rec.bytes)
	assert.NotNil(t, rec.Unwrap())
}
