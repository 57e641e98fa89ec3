package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"forecast_srv/internal/errs"
	"forecast_srv/internal/fetch"
	"forecast_srv/internal/models"
	"forecast_srv/internal/render"
	"forecast_srv/internal/repository"
	"forecast_srv/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GenerateRequest captures everything a report-creation call specifies.
type GenerateRequest struct {
	Type              models.ReportType
	TemplateName      string
	Title             string
	StartDate         time.Time
	EndDate           time.Time
	ProductIDs        []uint
	IncludeHistorical bool
	IncludeForecast   bool
	// PDF only.
	IncludeCharts bool
	// XLSX only.
	IncludePivot bool
	SheetNames   map[string]string
}

// GenerateResult is the response for a successful report creation.
// Warnings report degraded data fetches so callers can detect reports
// generated from partial data.
type GenerateResult struct {
	Type      models.ReportType `json:"type"`
	FileName  string            `json:"file_name"`
	CreatedAt time.Time         `json:"created_at"`
	SizeBytes int64             `json:"size_bytes"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// TemplateRequest captures a template-creation call.
type TemplateRequest struct {
	Name         string
	Description  string
	Type         models.ReportType
	TemplatePath string
	IsActive     bool
}

// ReportService is the report lifecycle manager. It is the only component
// allowed to write report files and history rows. Per request the flow is
// strictly fetch, render, persist, schedule expiry; a failure before the
// history insert leaves no row behind.
type ReportService struct {
	repo      *repository.ReportRepository
	fetcher   fetch.Fetcher
	renderer  *render.Renderer
	files     storage.Storage
	logger    *logrus.Logger
	retention time.Duration

	// Pending deferred deletions keyed by history id. The sweep cancels
	// timers for rows it deletes; the delete itself stays idempotent
	// either way.
	timers sync.Map // map[uint]*time.Timer
}

// NewReportService assembles the lifecycle manager.
func NewReportService(
	repo *repository.ReportRepository,
	fetcher fetch.Fetcher,
	renderer *render.Renderer,
	files storage.Storage,
	retention time.Duration,
	logger *logrus.Logger,
) *ReportService {
	return &ReportService{
		repo:      repo,
		fetcher:   fetcher,
		renderer:  renderer,
		files:     files,
		logger:    logger,
		retention: retention,
	}
}

// Generate runs one report request through the full lifecycle and returns
// its metadata. Only fully written reports are recorded.
func (s *ReportService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"type":     req.Type,
		"template": req.TemplateName,
	})

	if !req.Type.Valid() {
		return nil, errs.Validationf("unsupported report type: %s", req.Type)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, errs.Validationf("end date must not be before start date")
	}

	tmpl, err := s.repo.GetTemplateByNameAndType(ctx, req.TemplateName, req.Type)
	if err != nil {
		return nil, err
	}

	dataset, warnings := s.fetchDataset(ctx, req, logger)

	data, err := s.renderer.Render(ctx, req.Type, tmpl.TemplatePath, dataset, render.Params{
		Title:          req.Title,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		GenerationTime: time.Now().UTC(),
		IncludeCharts:  req.IncludeCharts,
		IncludePivot:   req.IncludePivot,
		SheetNames:     req.SheetNames,
	})
	if err != nil {
		logger.WithError(err).Error("Report rendering failed")
		return nil, err
	}

	fileName := fmt.Sprintf("report_%s_%s.%s", req.Type, uuid.New(), req.Type.Extension())
	if err := s.files.Save(ctx, fileName, bytes.NewReader(data)); err != nil {
		logger.WithError(err).Error("Failed to write report file")
		return nil, errs.Generationf(err, "failed to write report file")
	}

	now := time.Now().UTC()
	expiredAt := now.Add(s.retention)
	history := &models.ReportHistory{
		FileName:   fileName,
		FilePath:   fileName,
		TemplateID: &tmpl.ID,
		Type:       req.Type,
		SizeBytes:  int64(len(data)),
		ExpiredAt:  &expiredAt,
		Parameters: requestParameters(req),
	}

	if err := s.repo.CreateHistory(ctx, history); err != nil {
		// A file without a row is an orphan cleanup cannot find.
		if delErr := s.files.Delete(context.WithoutCancel(ctx), fileName); delErr != nil {
			logger.WithError(delErr).WithField("file_name", fileName).
				Error("Failed to remove orphaned report file")
		}
		return nil, err
	}

	s.scheduleDeletion(history.ID, fileName, s.retention)

	logger.WithFields(logrus.Fields{
		"file_name":  fileName,
		"size_bytes": history.SizeBytes,
		"expired_at": expiredAt,
	}).Info("Report generated")

	return &GenerateResult{
		Type:      req.Type,
		FileName:  fileName,
		CreatedAt: history.CreatedAt,
		SizeBytes: history.SizeBytes,
		Warnings:  warnings,
	}, nil
}

// fetchDataset collects the requested facets. Fetch failures degrade to an
// empty dataset and surface as warnings, never as request errors.
func (s *ReportService) fetchDataset(ctx context.Context, req GenerateRequest, logger *logrus.Entry) (render.Dataset, []string) {
	var dataset render.Dataset
	var warnings []string

	if req.IncludeForecast {
		points, err := s.fetcher.FetchForecast(ctx, req.ProductIDs, req.StartDate, req.EndDate)
		if err != nil {
			logger.WithError(err).Warn("Forecast data fetch failed, continuing with empty dataset")
			warnings = append(warnings, fmt.Sprintf("forecast data unavailable: %v", err))
			points = []fetch.ForecastPoint{}
		}
		dataset.Forecast = points
	}

	if req.IncludeHistorical {
		points, err := s.fetcher.FetchHistorical(ctx, req.ProductIDs, req.StartDate, req.EndDate)
		if err != nil {
			logger.WithError(err).Warn("Historical data fetch failed, continuing with empty dataset")
			warnings = append(warnings, fmt.Sprintf("historical data unavailable: %v", err))
			points = []fetch.HistoricalPoint{}
		}
		dataset.Historical = points
	}

	return dataset, warnings
}

// Download streams the exact bytes of a generated report. It never extends
// or resets the expiry.
func (s *ReportService) Download(ctx context.Context, fileName string) (io.ReadCloser, *models.ReportHistory, error) {
	history, err := s.repo.GetHistoryByFileName(ctx, fileName)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.files.Get(ctx, history.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, errs.NotFoundf("report file '%s' not found or already deleted", fileName)
		}
		return nil, nil, errs.Storagef(err, "failed to open report file")
	}
	return reader, history, nil
}

// History lists generated reports newest first.
func (s *ReportService) History(ctx context.Context, filter repository.HistoryFilter) ([]models.ReportHistory, error) {
	return s.repo.ListHistory(ctx, filter)
}

// Metrics returns the aggregate report counters.
func (s *ReportService) Metrics(ctx context.Context) (*repository.Metrics, error) {
	return s.repo.Metrics(ctx)
}

// CreateTemplate validates and stores a new template. The declared type
// must agree with the template asset extension; a mismatch is rejected
// instead of becoming undefined behavior at generation time.
func (s *ReportService) CreateTemplate(ctx context.Context, req TemplateRequest) (*models.ReportTemplate, error) {
	if req.Name == "" {
		return nil, errs.Validationf("template name is required")
	}
	if !req.Type.Valid() {
		return nil, errs.Validationf("unsupported template type: %s", req.Type)
	}
	if req.TemplatePath == "" {
		return nil, errs.Validationf("template path is required")
	}

	ext := strings.ToLower(filepath.Ext(req.TemplatePath))
	switch req.Type {
	case models.ReportTypePDF:
		if ext != ".html" && ext != ".htm" {
			return nil, errs.Validationf("pdf template asset must be an .html file, got '%s'", ext)
		}
	case models.ReportTypeXLSX:
		if ext != ".json" {
			return nil, errs.Validationf("xlsx template asset must be a .json config, got '%s'", ext)
		}
	}

	tmpl := &models.ReportTemplate{
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		TemplatePath: req.TemplatePath,
		IsActive:     req.IsActive,
	}
	if err := s.repo.CreateTemplate(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// ListTemplates lists templates matching the optional filters.
func (s *ReportService) ListTemplates(ctx context.Context, filter repository.TemplateFilter) ([]models.ReportTemplate, error) {
	return s.repo.ListTemplates(ctx, filter)
}

// CleanupExpired deletes every report past its retention horizon, file and
// row as one logical operation, and returns the number of reports removed.
// Racing deferred-deletion timers are cancelled; a concurrent sweep having
// already deleted a report is not an error.
func (s *ReportService) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, report := range expired {
		s.cancelDeletion(report.ID)
		if s.removeReport(ctx, report.ID, report.FilePath) {
			removed++
		}
	}

	if removed > 0 {
		s.logger.WithField("count", removed).Info("Expired reports cleaned up")
	}
	return removed, nil
}

// Close cancels all pending deferred deletions. Rows past their horizon
// are picked up by the next sweep after restart.
func (s *ReportService) Close() {
	s.timers.Range(func(key, value any) bool {
		if timer, ok := value.(*time.Timer); ok {
			timer.Stop()
		}
		s.timers.Delete(key)
		return true
	})
}

// scheduleDeletion arms exactly one deferred deletion for the report.
func (s *ReportService) scheduleDeletion(id uint, filePath string, delay time.Duration) {
	timer := time.AfterFunc(delay, func() {
		s.timers.Delete(id)
		// Failures here are operational noise only, never surfaced.
		s.removeReport(context.Background(), id, filePath)
	})
	s.timers.Store(id, timer)
}

// cancelDeletion stops a pending timer for the report, if any.
func (s *ReportService) cancelDeletion(id uint) {
	if value, ok := s.timers.LoadAndDelete(id); ok {
		if timer, ok := value.(*time.Timer); ok {
			timer.Stop()
		}
	}
}

// removeReport deletes the report file and its row as one idempotent
// operation. A missing file or row means the other deletion path already
// ran, which is success. Returns whether the row was actually removed.
func (s *ReportService) removeReport(ctx context.Context, id uint, filePath string) bool {
	logger := s.logger.WithFields(logrus.Fields{
		"history_id": id,
		"file_path":  filePath,
	})

	if err := s.files.Delete(ctx, filePath); err != nil {
		logger.WithError(err).Error("Failed to delete report file")
		// Keep the row so the next sweep retries the pair.
		return false
	}

	removed, err := s.repo.DeleteHistory(ctx, id)
	if err != nil {
		logger.WithError(err).Error("Failed to delete report history row")
		return false
	}
	if removed {
		logger.Debug("Report removed")
	}
	return removed
}

// requestParameters records the exact request that produced a report.
func requestParameters(req GenerateRequest) models.JSON {
	productIDs := make([]interface{}, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		productIDs = append(productIDs, id)
	}

	params := models.JSON{
		"template_name":           req.TemplateName,
		"start_date":              req.StartDate.Format(time.RFC3339),
		"end_date":                req.EndDate.Format(time.RFC3339),
		"product_ids":             productIDs,
		"include_historical_data": req.IncludeHistorical,
		"include_forecast":        req.IncludeForecast,
	}

	switch req.Type {
	case models.ReportTypePDF:
		params["title"] = req.Title
		params["include_charts"] = req.IncludeCharts
	case models.ReportTypeXLSX:
		params["include_pivot_tables"] = req.IncludePivot
		if len(req.SheetNames) > 0 {
			sheetNames := make(map[string]interface{}, len(req.SheetNames))
			for k, v := range req.SheetNames {
				sheetNames[k] = v
			}
			params["sheet_names"] = sheetNames
		}
	}

	return params
}
