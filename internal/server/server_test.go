package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forecast_srv/internal/config"
	"forecast_srv/internal/database"
	"forecast_srv/internal/fetch"
	"forecast_srv/internal/models"
	"forecast_srv/internal/render"
	"forecast_srv/internal/repository"
	"forecast_srv/internal/service"
	"forecast_srv/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubConverter struct{}

func (stubConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	return append([]byte("%PDF-1.4 stub\n"), html...), nil
}

func setupTestServer(t *testing.T) (*Server, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	require.NoError(t, database.SeedDefaultTemplates(db, logger))

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := repository.NewReportRepository(db)
	renderer := render.NewRenderer(stubConverter{}, logger)
	svc := service.NewReportService(repo, fetch.NewSyntheticFetcher(), renderer, files, time.Hour, logger)
	t.Cleanup(svc.Close)

	cfg := config.Config{}
	return NewServer(cfg, svc, logger), db
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePDFReportEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/reports/pdf",
		`{"start_date":"2023-09-01T00:00:00Z","end_date":"2023-10-31T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		FileName  string `json:"file_name"`
		SizeBytes int64  `json:"size_bytes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, strings.HasPrefix(result.FileName, "report_pdf_"))
	assert.Positive(t, result.SizeBytes)

	// Download streams the exact stored file back.
	rec = doRequest(srv, http.MethodGet, "/reports/download/"+result.FileName, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), result.FileName)
	assert.Equal(t, int(result.SizeBytes), rec.Body.Len())
}

func TestCreateReportValidation(t *testing.T) {
	srv, _ := setupTestServer(t)

	// Missing dates fail validation.
	rec := doRequest(srv, http.MethodPost, "/reports/pdf", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An unknown template maps to 404.
	rec = doRequest(srv, http.MethodPost, "/reports/pdf",
		`{"start_date":"2023-09-01T00:00:00Z","end_date":"2023-10-31T00:00:00Z","template_name":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadUnknownReport(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/reports/download/report_pdf_nope.pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpointValidation(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/reports/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/reports/history?type=docx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/reports/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTemplateEndpoints(t *testing.T) {
	srv, db := setupTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/templates",
		`{"name":"quarterly","type":"pdf","template_path":"templates/pdf/quarterly.html"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate name conflicts.
	rec = doRequest(srv, http.MethodPost, "/templates",
		`{"name":"quarterly","type":"pdf","template_path":"templates/pdf/other.html"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Extension mismatch is a validation error.
	rec = doRequest(srv, http.MethodPost, "/templates",
		`{"name":"bad","type":"xlsx","template_path":"templates/xlsx/layout.html"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	db.Model(&models.ReportTemplate{}).Count(&count)
	// Two seeded defaults plus the one created here.
	assert.Equal(t, int64(3), count)

	rec = doRequest(srv, http.MethodGet, "/templates?type=pdf&is_active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var templates []models.ReportTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &templates))
	assert.Len(t, templates, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/reports/pdf",
		`{"start_date":"2023-09-01T00:00:00Z","end_date":"2023-10-31T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/reports/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics repository.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, int64(1), metrics.TotalReports)
	assert.Equal(t, int64(1), metrics.PDFReports)
	require.NotNil(t, metrics.MostPopularTemplate)
	assert.Equal(t, "default_pdf", *metrics.MostPopularTemplate)
}

func TestCleanupEndpoint(t *testing.T) {
	srv, db := setupTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/reports/pdf",
		`{"start_date":"2023-09-01T00:00:00Z","end_date":"2023-10-31T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, db.Model(&models.ReportHistory{}).
		Where("1 = 1").Update("expired_at", past).Error)

	rec = doRequest(srv, http.MethodGet, "/cleanup/expired", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Removed int    `json:"removed"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Removed)
	assert.Equal(t, "success", resp.Status)
}
