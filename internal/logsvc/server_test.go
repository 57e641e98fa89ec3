package logsvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLogServer(t *testing.T, content string) (*Server, string) {
	path := filepath.Join(t.TempDir(), "app.log")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	logger := testLogger()
	return NewServer(NewLogService(path, logger), logger), path
}

func serveLogRequest(srv *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestGetLogsEndpoint(t *testing.T) {
	srv, _ := setupLogServer(t, "one\ntwo\nthree\n")

	rec := serveLogRequest(srv, http.MethodGet, "/logs?lines=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var result TailResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"two", "three"}, result.Logs)
	assert.Equal(t, 3, result.TotalLines)
	assert.Equal(t, 2, result.ReturnedLines)
}

func TestGetLogsDefaultsAndValidation(t *testing.T) {
	srv, _ := setupLogServer(t, "one\n")

	// No lines parameter means the default of 100.
	rec := serveLogRequest(srv, http.MethodGet, "/logs")
	require.Equal(t, http.StatusOK, rec.Code)

	var result TailResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.ReturnedLines)

	// Non-numeric lines is rejected, out-of-range is clamped.
	rec = serveLogRequest(srv, http.MethodGet, "/logs?lines=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveLogRequest(srv, http.MethodGet, "/logs?lines=-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClearLogsEndpoint(t *testing.T) {
	srv, path := setupLogServer(t, "one\n")

	rec := serveLogRequest(srv, http.MethodPost, "/logs/clear")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Contains(t, resp["message"], "Backup created")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDownloadLogsEndpoint(t *testing.T) {
	srv, _ := setupLogServer(t, "raw\n")

	rec := serveLogRequest(srv, http.MethodGet, "/logs/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "raw\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestDownloadLogsMissingFile(t *testing.T) {
	srv, _ := setupLogServer(t, "")

	rec := serveLogRequest(srv, http.MethodGet, "/logs/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
